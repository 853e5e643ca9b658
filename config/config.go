// Package config loads the broker/client protocol configuration from the
// line-oriented "key: value" text format in spec §6, plus an optional
// YAML file for operational (non-protocol) settings.
package config

import (
	"bufio"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"
)

// Shared holds the config keys common to both broker and client roles.
type Shared struct {
	ID            string
	IP            string
	Port          int
	LogPath       string
	LogInTerminal bool
	DomainName    string
	CertPath      string
	CertPass      string
}

// Client holds the CONNECT-shaping keys a client process reads.
type Client struct {
	Shared

	ProtocolName                string
	ProtocolVersion             byte
	FlagCleanStart              bool
	FlagWillFlag                bool
	FlagWillQoS                 byte
	FlagWillRetain              bool
	FlagPassword                bool
	FlagUsername                bool
	KeepAlive                   uint16
	SessionExpiryInterval       uint32
	ReceiveMaximum              uint16
	MaximumPacketSize           uint32
	TopicAliasMaximum           uint16
	RequestResponseInformation  bool
	RequestProblemInformation  bool
	AuthenticationMethod        string
	AuthenticationData          string
	PublishDup                  bool
	PublishQoS                  byte
	PublishRetain                bool
	SubscribeMaxQoS              byte
	SubscribeNoLocal             bool
	SubscribeRetainAsPublished   bool
	SubscribeRetainHandling      byte
}

// Broker holds the keys a broker process reads.
type Broker struct {
	Shared

	DBPath string
}

// ParseShared reads only the shared keys, ignoring role-specific ones.
func ParseShared(r io.Reader) (Shared, error) {
	kv, err := scan(r)
	if err != nil {
		return Shared{}, err
	}
	return sharedFrom(kv)
}

// ParseClient reads a client config file.
func ParseClient(r io.Reader) (Client, error) {
	kv, err := scan(r)
	if err != nil {
		return Client{}, err
	}

	shared, err := sharedFrom(kv)
	if err != nil {
		return Client{}, err
	}

	c := Client{
		Shared:                     shared,
		ProtocolName:               kv.str("protocol_name", "MQTT"),
		ProtocolVersion:            byte(kv.int("protocol_version", 5)),
		FlagCleanStart:             kv.boolVal("flag_clean_start", true),
		FlagWillFlag:               kv.boolVal("flag_will_flag", false),
		FlagWillQoS:                byte(kv.int("flag_will_qos", 0)),
		FlagWillRetain:             kv.boolVal("flag_will_retain", false),
		FlagPassword:               kv.boolVal("flag_password", false),
		FlagUsername:               kv.boolVal("flag_username", false),
		KeepAlive:                  uint16(kv.int("keep_alive", 60)),
		SessionExpiryInterval:      uint32(kv.int("session_expiry_interval", 0)),
		ReceiveMaximum:             uint16(kv.int("receive_maximum", 65535)),
		MaximumPacketSize:          uint32(kv.int("maximum_packet_size", 0)),
		TopicAliasMaximum:          uint16(kv.int("topic_alias_maximum", 0)),
		RequestResponseInformation: kv.boolVal("request_response_information", false),
		RequestProblemInformation: kv.boolVal("request_problem_information", true),
		AuthenticationMethod:       kv.str("authentication_method", ""),
		AuthenticationData:         kv.str("authentication_data", ""),
		PublishDup:                 kv.boolVal("publish_dup", false),
		PublishQoS:                 byte(kv.int("publish_qos", 0)),
		PublishRetain:              kv.boolVal("publish_retain", false),
		SubscribeMaxQoS:            byte(kv.int("subscribe_max_qos", 1)),
		SubscribeNoLocal:           kv.boolVal("subscribe_no_local", false),
		SubscribeRetainAsPublished: kv.boolVal("subscribe_retain_as_published", false),
		SubscribeRetainHandling:    byte(kv.int("subscribe_retain_handling", 0)),
	}
	return c, nil
}

// ParseBroker reads a broker config file.
func ParseBroker(r io.Reader) (Broker, error) {
	kv, err := scan(r)
	if err != nil {
		return Broker{}, err
	}
	shared, err := sharedFrom(kv)
	if err != nil {
		return Broker{}, err
	}
	return Broker{Shared: shared, DBPath: kv.str("db_path", "session.db")}, nil
}

func sharedFrom(kv keyvals) (Shared, error) {
	return Shared{
		ID:            kv.str("id", ""),
		IP:            kv.str("ip", "0.0.0.0"),
		Port:          kv.int("port", 8883),
		LogPath:       kv.str("log_path", "action.csv"),
		LogInTerminal: kv.boolVal("log_in_terminal", false),
		DomainName:    kv.str("domain_name", "localhost"),
		CertPath:      kv.str("cert_path", ""),
		CertPass:      kv.str("cert_pass", ""),
	}, nil
}

type keyvals map[string]string

func (kv keyvals) str(key, def string) string {
	if v, ok := kv[key]; ok {
		return v
	}
	return def
}

func (kv keyvals) int(key string, def int) int {
	v, ok := kv[key]
	if !ok {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func (kv keyvals) boolVal(key string, def bool) bool {
	v, ok := kv[key]
	if !ok {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

// scan parses "key: value" lines, skipping blanks and '#' comments.
func scan(r io.Reader) (keyvals, error) {
	kv := make(keyvals)
	sc := bufio.NewScanner(r)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, value, ok := strings.Cut(line, ":")
		if !ok {
			return nil, errors.Newf("config: line %d: missing ':' separator: %q", lineNo, line)
		}
		kv[strings.TrimSpace(key)] = strings.TrimSpace(value)
	}
	if err := sc.Err(); err != nil {
		return nil, errors.Wrap(err, "config: scan")
	}
	return kv, nil
}

// LoadClientFile opens path and parses it as a client config.
func LoadClientFile(path string) (Client, error) {
	f, err := os.Open(path)
	if err != nil {
		return Client{}, errors.Wrap(err, "config: open client config")
	}
	defer f.Close()
	return ParseClient(f)
}

// LoadBrokerFile opens path and parses it as a broker config.
func LoadBrokerFile(path string) (Broker, error) {
	f, err := os.Open(path)
	if err != nil {
		return Broker{}, errors.Wrap(err, "config: open broker config")
	}
	defer f.Close()
	return ParseBroker(f)
}
