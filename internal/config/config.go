package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server     ServerConfig
	Database   DatabaseConfig
	Logger     LoggerConfig
	Runner     RunnerConfig
	Kubernetes KubernetesConfig
	Coverage   CoverageConfig
}

type ServerConfig struct {
	Host string
	Port int
}

type DatabaseConfig struct {
	Host            string
	Port            int
	User            string
	Password        string
	Name            string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// DSN builds the postgres connection string.
func (c DatabaseConfig) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.Name, c.SSLMode)
}

type LoggerConfig struct {
	Level  string
	Format string
}

type RunnerConfig struct {
	WorkDir         string
	DefaultShell    string
	MaxParallelJobs int
	OS              string
	Arch            string
	EnvName         string
	StepTimeout     time.Duration
}

type KubernetesConfig struct {
	Enabled        bool
	InCluster      bool
	KubeConfigPath string
	Namespace      string
	JobImage       string
	PollInterval   time.Duration
}

type CoverageConfig struct {
	Enabled     bool
	URL         string
	Token       string
	Timeout     time.Duration
	FailOnError bool
}

func Load() (*Config, error) {
	v := viper.New()

	// Defaults
	v.SetDefault("SERVER_HOST", "0.0.0.0")
	v.SetDefault("SERVER_PORT", 8080)

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "workflow_runner")
	v.SetDefault("DB_SSLMODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 2)
	v.SetDefault("DB_CONN_MAX_LIFETIME", "30m")

	v.SetDefault("LOGGER_LEVEL", "info")
	v.SetDefault("LOGGER_FORMAT", "json")

	v.SetDefault("RUNNER_WORKDIR", "/var/lib/workflow-runner")
	v.SetDefault("RUNNER_SHELL", "/bin/sh")
	v.SetDefault("RUNNER_MAX_PARALLEL_JOBS", 4)
	v.SetDefault("RUNNER_OS", "ubuntu-latest")
	v.SetDefault("RUNNER_ARCH", "amd64")
	v.SetDefault("RUNNER_ENV_NAME", "")
	v.SetDefault("RUNNER_STEP_TIMEOUT", "30m")

	v.SetDefault("K8S_ENABLED", false)
	v.SetDefault("K8S_IN_CLUSTER", false)
	v.SetDefault("K8S_KUBECONFIG", "")
	v.SetDefault("K8S_NAMESPACE", "workflow-runner")
	v.SetDefault("K8S_JOB_IMAGE", "debian:bookworm-slim")
	v.SetDefault("K8S_POLL_INTERVAL", "5s")

	v.SetDefault("COVERAGE_ENABLED", false)
	v.SetDefault("COVERAGE_URL", "")
	v.SetDefault("COVERAGE_TOKEN", "")
	v.SetDefault("COVERAGE_TIMEOUT", "60s")
	v.SetDefault("COVERAGE_FAIL_ON_ERROR", true)

	// Env
	v.AutomaticEnv()

	cfg := &Config{
		Server: ServerConfig{
			Host: v.GetString("SERVER_HOST"),
			Port: v.GetInt("SERVER_PORT"),
		},
		Database: DatabaseConfig{
			Host:            v.GetString("DB_HOST"),
			Port:            v.GetInt("DB_PORT"),
			User:            v.GetString("DB_USER"),
			Password:        v.GetString("DB_PASSWORD"),
			Name:            v.GetString("DB_NAME"),
			SSLMode:         v.GetString("DB_SSLMODE"),
			MaxOpenConns:    v.GetInt("DB_MAX_OPEN_CONNS"),
			MaxIdleConns:    v.GetInt("DB_MAX_IDLE_CONNS"),
			ConnMaxLifetime: v.GetDuration("DB_CONN_MAX_LIFETIME"),
		},
		Logger: LoggerConfig{
			Level:  v.GetString("LOGGER_LEVEL"),
			Format: v.GetString("LOGGER_FORMAT"),
		},
		Runner: RunnerConfig{
			WorkDir:         v.GetString("RUNNER_WORKDIR"),
			DefaultShell:    v.GetString("RUNNER_SHELL"),
			MaxParallelJobs: v.GetInt("RUNNER_MAX_PARALLEL_JOBS"),
			OS:              v.GetString("RUNNER_OS"),
			Arch:            v.GetString("RUNNER_ARCH"),
			EnvName:         v.GetString("RUNNER_ENV_NAME"),
			StepTimeout:     v.GetDuration("RUNNER_STEP_TIMEOUT"),
		},
		Kubernetes: KubernetesConfig{
			Enabled:        v.GetBool("K8S_ENABLED"),
			InCluster:      v.GetBool("K8S_IN_CLUSTER"),
			KubeConfigPath: v.GetString("K8S_KUBECONFIG"),
			Namespace:      v.GetString("K8S_NAMESPACE"),
			JobImage:       v.GetString("K8S_JOB_IMAGE"),
			PollInterval:   v.GetDuration("K8S_POLL_INTERVAL"),
		},
		Coverage: CoverageConfig{
			Enabled:     v.GetBool("COVERAGE_ENABLED"),
			URL:         v.GetString("COVERAGE_URL"),
			Token:       v.GetString("COVERAGE_TOKEN"),
			Timeout:     v.GetDuration("COVERAGE_TIMEOUT"),
			FailOnError: v.GetBool("COVERAGE_FAIL_ON_ERROR"),
		},
	}

	return cfg, nil
}
