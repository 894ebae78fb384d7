package server

import (
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/juju/errors"
	"gopkg.in/yaml.v2"
)

type ICEServer struct {
	URLs       []string `yaml:"urls" json:"urls"`
	Username   string   `yaml:"username" json:"username,omitempty"`
	Credential string   `yaml:"credential" json:"credential,omitempty"`

	// AuthType secret replaces Username and Credential with short-lived
	// credentials derived from AuthSecret. See ICEAuthServers.
	AuthType   ICEAuthType   `yaml:"auth_type" json:"-"`
	AuthSecret ICEAuthSecret `yaml:"auth_secret" json:"-"`
}

type ICEAuthType string

const (
	ICEAuthTypeNone   ICEAuthType = ""
	ICEAuthTypeSecret ICEAuthType = "secret"
)

type ICEAuthSecret struct {
	Username string        `yaml:"username"`
	Secret   string        `yaml:"secret"`
	TTL      time.Duration `yaml:"ttl"`
}

type TLSConfig struct {
	Cert string `yaml:"cert"`
	Key  string `yaml:"key"`
}

type StoreType string

const (
	StoreTypeMemory StoreType = "memory"
	StoreTypeRedis  StoreType = "redis"
)

type RedisConfig struct {
	Host   string `yaml:"host"`
	Port   int    `yaml:"port"`
	Prefix string `yaml:"prefix"`
}

type StoreConfig struct {
	Type  StoreType   `yaml:"type"`
	Redis RedisConfig `yaml:"redis"`
}

type RelayConfig struct {
	// StrictRouting drops signaling messages between connections that are not
	// members of the same room.
	StrictRouting bool `yaml:"strict_routing"`
	// PingInterval is the keepalive interval for websocket connections.
	PingInterval time.Duration `yaml:"ping_interval"`
	// PongTimeout closes connections that have not answered a ping for this
	// long. Zero disables it since plain browser clients never send pong.
	PongTimeout time.Duration `yaml:"pong_timeout"`
	// WriteQueueSize is the number of outbound messages buffered for every
	// connection. Messages are dropped when the queue is full.
	WriteQueueSize int `yaml:"write_queue_size"`
	// MaxMessageSize is the largest websocket message read from a client.
	// Offers with many media sections easily exceed the 32 KiB websocket
	// default.
	MaxMessageSize int64 `yaml:"max_message_size"`
}

// DefaultMaxMessageSize is used when RelayConfig.MaxMessageSize is not set.
const DefaultMaxMessageSize int64 = 1 << 20

type PrometheusConfig struct {
	AccessToken string `yaml:"access_token"`
}

type Config struct {
	BaseURL    string           `yaml:"base_url"`
	BindHost   string           `yaml:"bind_host"`
	BindPort   int              `yaml:"bind_port"`
	FS         string           `yaml:"fs"`
	TLS        TLSConfig        `yaml:"tls"`
	Store      StoreConfig      `yaml:"store"`
	ICEServers []ICEServer      `yaml:"ice_servers"`
	Relay      RelayConfig      `yaml:"relay"`
	Prometheus PrometheusConfig `yaml:"prometheus"`
}

// ClientConfig is served to browser clients as /config.json.
type ClientConfig struct {
	BaseURL    string      `json:"baseUrl"`
	ICEServers []ICEServer `json:"iceServers"`
}

const redacted = "<redacted>"

func redact(value string) string {
	if value == "" {
		return ""
	}

	return redacted
}

// Redacted returns a copy of the config that is safe to log.
func (c Config) Redacted() Config {
	iceServers := make([]ICEServer, len(c.ICEServers))

	for i, ice := range c.ICEServers {
		ice.Credential = redact(ice.Credential)
		ice.AuthSecret.Secret = redact(ice.AuthSecret.Secret)
		iceServers[i] = ice
	}

	c.ICEServers = iceServers
	c.Prometheus.AccessToken = redact(c.Prometheus.AccessToken)

	return c
}

func InitConfig(c *Config) {
	c.BindPort = 3001
	c.Store.Type = StoreTypeMemory
	c.Store.Redis.Host = "localhost"
	c.Store.Redis.Port = 6379
	c.Store.Redis.Prefix = "peercalls"
	c.ICEServers = []ICEServer{{
		URLs: []string{
			"stun:stun.l.google.com:19302",
			"stun:stun1.l.google.com:19302",
			"stun:stun2.l.google.com:19302",
			"stun:stun3.l.google.com:19302",
			"stun:stun4.l.google.com:19302",
		},
	}}
	c.Relay.PingInterval = 5 * time.Second
	c.Relay.WriteQueueSize = 32
	c.Relay.MaxMessageSize = DefaultMaxMessageSize
}

// ReadConfig initializes the defaults, applies the files in order and then
// the PEERCALLS_ environment variables.
func ReadConfig(filenames []string) (c Config, err error) {
	InitConfig(&c)

	err = ReadConfigFiles(filenames, &c)

	ReadConfigFromEnv("PEERCALLS_", &c)

	return c, errors.Trace(err)
}

func ReadConfigFiles(filenames []string, c *Config) error {
	for _, filename := range filenames {
		if err := ReadConfigFile(filename, c); err != nil {
			return errors.Trace(err)
		}
	}

	return nil
}

func ReadConfigFile(filename string, c *Config) error {
	f, err := os.Open(filename)
	if err != nil {
		return errors.Annotatef(err, "read config file: %s", filename)
	}

	defer f.Close()

	return errors.Annotatef(ReadConfigYAML(f, c), "read yaml config: %s", filename)
}

func ReadConfigYAML(reader io.Reader, c *Config) error {
	if err := yaml.NewDecoder(reader).Decode(c); err != nil {
		return errors.Annotatef(err, "decode yaml")
	}

	return nil
}

func ReadConfigFromEnv(prefix string, c *Config) {
	setEnvString(&c.BaseURL, prefix+"BASE_URL")
	setEnvString(&c.BindHost, prefix+"BIND_HOST")
	setEnvInt(&c.BindPort, prefix+"BIND_PORT")
	setEnvString(&c.FS, prefix+"FS")
	setEnvString(&c.TLS.Cert, prefix+"TLS_CERT")
	setEnvString(&c.TLS.Key, prefix+"TLS_KEY")

	setEnvStoreType(&c.Store.Type, prefix+"STORE_TYPE")
	setEnvString(&c.Store.Redis.Host, prefix+"STORE_REDIS_HOST")
	setEnvInt(&c.Store.Redis.Port, prefix+"STORE_REDIS_PORT")
	setEnvString(&c.Store.Redis.Prefix, prefix+"STORE_REDIS_PREFIX")

	if value, ok := os.LookupEnv(prefix + "ICE_SERVER_URLS"); ok {
		// An empty value disables the default servers.
		c.ICEServers = []ICEServer{}

		var ice ICEServer

		for _, url := range strings.Split(value, ",") {
			if url != "" {
				ice.URLs = append(ice.URLs, url)
			}
		}

		if len(ice.URLs) > 0 {
			setEnvICEAuthType(&ice.AuthType, prefix+"ICE_SERVER_AUTH_TYPE")

			if ice.AuthType == ICEAuthTypeSecret {
				setEnvString(&ice.AuthSecret.Username, prefix+"ICE_SERVER_USERNAME")
				setEnvString(&ice.AuthSecret.Secret, prefix+"ICE_SERVER_SECRET")
				setEnvDuration(&ice.AuthSecret.TTL, prefix+"ICE_SERVER_TTL")
			} else {
				setEnvString(&ice.Username, prefix+"ICE_SERVER_USERNAME")
				setEnvString(&ice.Credential, prefix+"ICE_SERVER_CREDENTIAL")
			}

			c.ICEServers = append(c.ICEServers, ice)
		}
	}

	setEnvBool(&c.Relay.StrictRouting, prefix+"RELAY_STRICT_ROUTING")
	setEnvDuration(&c.Relay.PingInterval, prefix+"RELAY_PING_INTERVAL")
	setEnvDuration(&c.Relay.PongTimeout, prefix+"RELAY_PONG_TIMEOUT")
	setEnvInt(&c.Relay.WriteQueueSize, prefix+"RELAY_WRITE_QUEUE_SIZE")
	setEnvInt64(&c.Relay.MaxMessageSize, prefix+"RELAY_MAX_MESSAGE_SIZE")

	setEnvString(&c.Prometheus.AccessToken, prefix+"PROMETHEUS_ACCESS_TOKEN")
}

func setEnvString(dest *string, name string) {
	if value := os.Getenv(name); value != "" {
		*dest = value
	}
}

func setEnvInt(dest *int, name string) {
	if value, err := strconv.Atoi(os.Getenv(name)); err == nil {
		*dest = value
	}
}

func setEnvInt64(dest *int64, name string) {
	if value, err := strconv.ParseInt(os.Getenv(name), 10, 64); err == nil {
		*dest = value
	}
}

func setEnvDuration(dest *time.Duration, name string) {
	if value, err := time.ParseDuration(os.Getenv(name)); err == nil {
		*dest = value
	}
}

// setEnvBool only changes dest when the variable is explicitly set to true
// or false.
func setEnvBool(dest *bool, name string) {
	switch os.Getenv(name) {
	case "true":
		*dest = true
	case "false":
		*dest = false
	}
}

func setEnvStoreType(dest *StoreType, name string) {
	switch value := StoreType(os.Getenv(name)); value {
	case StoreTypeMemory, StoreTypeRedis:
		*dest = value
	}
}

func setEnvICEAuthType(dest *ICEAuthType, name string) {
	switch value := ICEAuthType(os.Getenv(name)); value {
	case ICEAuthTypeNone, ICEAuthTypeSecret:
		*dest = value
	}
}
