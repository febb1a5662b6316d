package config

import (
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config is used to hold all runtime configuration.
type Config struct {
	Contract struct {
		AdminAddress      string        `envconfig:"ADMIN_ADDRESS"`
		Address           string        `envconfig:"CONTRACT_ADDRESS"`
		VoteCost          uint64        `default:"1000000" envconfig:"VOTE_COST"` // 0.01 in base units
		CommissionPercent uint64        `default:"10" envconfig:"COMMISSION_PERCENT"`
		VotingPeriod      time.Duration `default:"72h" envconfig:"VOTING_PERIOD"`
		StrictClose       bool          `default:"false" envconfig:"STRICT_CLOSE"`
		AllowEmptyPolls   bool          `default:"false" envconfig:"ALLOW_EMPTY_POLLS"`
	}
	Bitcoin struct {
		Network string `default:"mainnet" envconfig:"BITCOIN_CHAIN"`
	}
	API struct {
		Address         string        `default:"127.0.0.1:8080" envconfig:"API_ADDRESS"`
		SettlementCheck time.Duration `default:"1m" envconfig:"SETTLEMENT_CHECK"`
		ShutdownTimeout time.Duration `default:"10s" envconfig:"SHUTDOWN_TIMEOUT"`
		DevRoutes       bool          `default:"false" envconfig:"DEV_ROUTES"`
	}
	AWS struct {
		Region          string `default:"ap-southeast-2" envconfig:"AWS_REGION" json:"AWS_REGION"`
		AccessKeyID     string `envconfig:"AWS_ACCESS_KEY_ID" json:"AWS_ACCESS_KEY_ID"`
		SecretAccessKey string `envconfig:"AWS_SECRET_ACCESS_KEY" json:"AWS_SECRET_ACCESS_KEY"`
		MaxRetries      int    `default:"4" envconfig:"AWS_MAX_RETRIES"`
	}
	Storage struct {
		Bucket string `default:"standalone" envconfig:"CONTRACT_STORAGE_BUCKET"`
		Root   string `default:"./tmp" envconfig:"CONTRACT_STORAGE_ROOT"`
	}
	Log struct {
		Development bool   `default:"false" envconfig:"DEVELOPMENT"`
		Format      string `default:"JSON" envconfig:"LOG_FORMAT"`
		FilePath    string `envconfig:"LOG_FILE_PATH"`
	}
}

// SafeConfig masks sensitive config values
func SafeConfig(cfg Config) *Config {
	cfgSafe := cfg

	if len(cfgSafe.AWS.AccessKeyID) > 0 {
		cfgSafe.AWS.AccessKeyID = "*** Masked ***"
	}
	if len(cfgSafe.AWS.SecretAccessKey) > 0 {
		cfgSafe.AWS.SecretAccessKey = "*** Masked ***"
	}

	return &cfgSafe
}

// Environment returns configuration sourced from environment variables
func Environment() (*Config, error) {
	var cfg Config

	if err := envconfig.Process("NODE", &cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}
