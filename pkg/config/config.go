// Package config holds the explicit configuration values the playout
// engine's managers need. Parsing the operator-facing config file itself is
// an external collaborator's concern; this package only defines the
// resolved shape those values take once parsed, plus an optional local-dev
// loader for exercising the system without a full config pipeline.
package config

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the fully-resolved configuration every manager process reads
// from. Field names mirror the section.key pairs of the INI-style config
// file this is distilled from, flattened into a single struct passed down
// explicitly rather than read from a process-wide singleton.
type Config struct {
	SubscriptionManagement SubscriptionManagementConfig `yaml:"subscription_management"`
	CacheFileStorage       CacheFileStorageConfig        `yaml:"cache_file_storage"`
	CacheMetaStorage       CacheMetaStorageConfig         `yaml:"cache_meta_storage"`
	Scheduling             SchedulingConfig               `yaml:"scheduling"`
	DisplayDevice          DisplayDeviceConfig            `yaml:"display_device"`
	Analytics              AnalyticsConfig                `yaml:"analytics"`
	ContextStore           ContextStoreConfig             `yaml:"context_store"`
	Personalisation        PersonalisationConfig          `yaml:"personalisation"`
	Facade                 FacadeConfig                   `yaml:"facade"`
	RPC                    RPCConfig                      `yaml:"rpc"`
}

// SubscriptionManagementConfig configures the root feed and its persistence.
type SubscriptionManagementConfig struct {
	SubscriptionRoot string        `yaml:"subscription_root"`
	RefreshRate      time.Duration `yaml:"refresh_rate"`
	PersistTo        string        `yaml:"persist_to"`
}

// CacheFileStorageConfig configures the on-disk content cache directory.
type CacheFileStorageConfig struct {
	CacheLocation string `yaml:"cache_location"`
	MaxCacheSize  int64  `yaml:"max_cache_size"`
}

// CacheMetaStorageConfig configures the cache's hash-metadata index.
type CacheMetaStorageConfig struct {
	MetaStorePath string `yaml:"meta_store_path"`
	IndexTable    string `yaml:"index_table"`
}

// SchedulingConfig configures default scheduling behavior.
type SchedulingConfig struct {
	DefaultContentDuration time.Duration `yaml:"default_content_duration"`
}

// DisplayDeviceConfig configures the physical display/panel the Display
// Manager drives (the serial power protocol itself is an external
// collaborator, out of scope here).
type DisplayDeviceConfig struct {
	DisplayDeviceSerialUSBName string        `yaml:"display_device_serial_usb_name"`
	DeviceType                 string        `yaml:"device_type"`
	DisplayTimeout             time.Duration `yaml:"display_timeout"`
}

// AnalyticsConfig configures the external analytics reporting collaborator.
type AnalyticsConfig struct {
	TrackingID               string `yaml:"tracking_id"`
	ActivateExtendedAnalytics bool  `yaml:"activate_extended_analytics"`
}

// ContextStoreConfig configures the sensor/context SQLite store.
type ContextStoreConfig struct {
	ContextStorePath string `yaml:"context_store_path"`
}

// PersonalisationConfig configures the optional websocket personalisation
// backend this runtime may report to.
type PersonalisationConfig struct {
	WSServerHost string `yaml:"ws_server_host"`
	WSServerPath string `yaml:"ws_server_path"`
	DisplayID    string `yaml:"display_id"`
	BeaconID     string `yaml:"beacon_id"`
}

// FacadeConfig configures the platform façade's idle-window appearance.
type FacadeConfig struct {
	ImagePath       string `yaml:"image_path"`
	ImageScale      string `yaml:"image_scale"`
	BackgroundColour string `yaml:"background_colour"`
}

// RPCConfig configures the fixed local TCP ports the RPC bus listens on.
type RPCConfig struct {
	SubscriptionRequestPort  int `yaml:"subscription_request_port"`
	SensorRequestPort        int `yaml:"sensor_request_port"`
	RendererRequestPort      int `yaml:"renderer_request_port"`
	SubscriptionReplyPort    int `yaml:"subscription_reply_port"`
	SensorReplyPort          int `yaml:"sensor_reply_port"`
	DisplayControllerReplyPort int `yaml:"display_controller_reply_port"`
}

// Default returns a Config with the fixed ports and constants the wire spec
// and component design call out by name, leaving operator-specific paths
// and feeds empty for the caller to fill in.
func Default() Config {
	return Config{
		SubscriptionManagement: SubscriptionManagementConfig{
			RefreshRate: 5 * time.Minute,
			PersistTo:   "subscription.db",
		},
		CacheFileStorage: CacheFileStorageConfig{
			CacheLocation: "cache",
		},
		CacheMetaStorage: CacheMetaStorageConfig{
			MetaStorePath: "cache-index.db",
			IndexTable:    "content_hashes",
		},
		Scheduling: SchedulingConfig{
			DefaultContentDuration: 15 * time.Second,
		},
		ContextStore: ContextStoreConfig{
			ContextStorePath: "context.db",
		},
		RPC: RPCConfig{
			SubscriptionRequestPort:   55343,
			SensorRequestPort:         55344,
			RendererRequestPort:       55345,
			SubscriptionReplyPort:     55346,
			SensorReplyPort:           55347,
			DisplayControllerReplyPort: 55348,
		},
	}
}

// Load reads a YAML-encoded Config from path, starting from Default() so
// unset fields keep their defaults. This is a development convenience, not
// a replacement for the operator-facing INI config file — production
// deployments are expected to assemble a Config some other way and pass it
// down explicitly.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, err
	}

	return cfg, nil
}
