package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

const (
	EnvEngineAutoPostEnabled    = "FACTOR_ENGINE_AUTO_POST_ENABLED"
	EnvEngineAutoPostThreshold  = "FACTOR_ENGINE_AUTO_POST_THRESHOLD"
	EnvEngineClassifyThreshold  = "FACTOR_ENGINE_CLASSIFICATION_THRESHOLD"
	EnvEnginePilotMode          = "FACTOR_ENGINE_PILOT_MODE"
	EnvEnginePilotPhase         = "FACTOR_ENGINE_PILOT_PHASE"
	EnvEngineLocationCodes      = "FACTOR_ENGINE_LOCATION_CODES"
	EnvEngineMaxValidationRetry = "FACTOR_ENGINE_MAX_VALIDATION_RETRIES"
	EnvEngineMaxExtractionRetry = "FACTOR_ENGINE_MAX_EXTRACTION_RETRIES"
	EnvEngineMaxVendorRetry     = "FACTOR_ENGINE_MAX_VENDOR_RETRIES"
)

// EngineConfig holds pipeline behavior settings: classification acceptance,
// auto-post gating, pilot mode, retry limits, and the location whitelist.
type EngineConfig struct {
	AutoPostEnabled         bool     `toml:"auto_post_enabled"`
	AutoPostThreshold       float64  `toml:"auto_post_threshold"`
	ClassificationThreshold float64  `toml:"classification_threshold"`
	PilotMode               bool     `toml:"pilot_mode"`
	PilotPhase              string   `toml:"pilot_phase"`
	LocationCodes           []string `toml:"location_codes"`
	MaxValidationRetries    int      `toml:"max_validation_retries"`
	MaxExtractionRetries    int      `toml:"max_extraction_retries"`
	MaxVendorRetries        int      `toml:"max_vendor_retries"`
}

// Finalize applies defaults, environment variable overrides, and validation.
func (c *EngineConfig) Finalize() error {
	c.loadDefaults()
	c.loadEnv()
	return c.validate()
}

// Merge overwrites non-zero fields from overlay.
func (c *EngineConfig) Merge(overlay *EngineConfig) {
	if overlay.AutoPostEnabled {
		c.AutoPostEnabled = true
	}
	if overlay.AutoPostThreshold != 0 {
		c.AutoPostThreshold = overlay.AutoPostThreshold
	}
	if overlay.ClassificationThreshold != 0 {
		c.ClassificationThreshold = overlay.ClassificationThreshold
	}
	if overlay.PilotMode {
		c.PilotMode = true
	}
	if overlay.PilotPhase != "" {
		c.PilotPhase = overlay.PilotPhase
	}
	if len(overlay.LocationCodes) > 0 {
		c.LocationCodes = overlay.LocationCodes
	}
	if overlay.MaxValidationRetries != 0 {
		c.MaxValidationRetries = overlay.MaxValidationRetries
	}
	if overlay.MaxExtractionRetries != 0 {
		c.MaxExtractionRetries = overlay.MaxExtractionRetries
	}
	if overlay.MaxVendorRetries != 0 {
		c.MaxVendorRetries = overlay.MaxVendorRetries
	}
}

func (c *EngineConfig) loadDefaults() {
	if c.AutoPostThreshold == 0 {
		c.AutoPostThreshold = 0.90
	}
	if c.ClassificationThreshold == 0 {
		c.ClassificationThreshold = 0.80
	}
	if c.PilotPhase == "" {
		c.PilotPhase = "phase1"
	}
	if c.MaxValidationRetries == 0 {
		c.MaxValidationRetries = 3
	}
	if c.MaxExtractionRetries == 0 {
		c.MaxExtractionRetries = 2
	}
	if c.MaxVendorRetries == 0 {
		c.MaxVendorRetries = 2
	}
}

func (c *EngineConfig) loadEnv() {
	if v := os.Getenv(EnvEngineAutoPostEnabled); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.AutoPostEnabled = b
		}
	}
	if v := os.Getenv(EnvEngineAutoPostThreshold); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			c.AutoPostThreshold = f
		}
	}
	if v := os.Getenv(EnvEngineClassifyThreshold); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			c.ClassificationThreshold = f
		}
	}
	if v := os.Getenv(EnvEnginePilotMode); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.PilotMode = b
		}
	}
	if v := os.Getenv(EnvEnginePilotPhase); v != "" {
		c.PilotPhase = v
	}
	if v := os.Getenv(EnvEngineLocationCodes); v != "" {
		codes := strings.Split(v, ",")
		c.LocationCodes = c.LocationCodes[:0]
		for _, code := range codes {
			if code = strings.TrimSpace(code); code != "" {
				c.LocationCodes = append(c.LocationCodes, code)
			}
		}
	}
	if v := os.Getenv(EnvEngineMaxValidationRetry); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.MaxValidationRetries = n
		}
	}
	if v := os.Getenv(EnvEngineMaxExtractionRetry); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.MaxExtractionRetries = n
		}
	}
	if v := os.Getenv(EnvEngineMaxVendorRetry); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.MaxVendorRetries = n
		}
	}
}

func (c *EngineConfig) validate() error {
	if c.AutoPostThreshold <= 0 || c.AutoPostThreshold > 1 {
		return fmt.Errorf("invalid auto_post_threshold: %f", c.AutoPostThreshold)
	}
	if c.ClassificationThreshold <= 0 || c.ClassificationThreshold > 1 {
		return fmt.Errorf("invalid classification_threshold: %f", c.ClassificationThreshold)
	}
	if c.MaxValidationRetries < 1 {
		return fmt.Errorf("invalid max_validation_retries: %d", c.MaxValidationRetries)
	}
	if c.MaxExtractionRetries < 1 {
		return fmt.Errorf("invalid max_extraction_retries: %d", c.MaxExtractionRetries)
	}
	if c.MaxVendorRetries < 1 {
		return fmt.Errorf("invalid max_vendor_retries: %d", c.MaxVendorRetries)
	}
	return nil
}
