package config

import (
	"fmt"
	"os"
	"strings"
)

func Template(kind string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(kind)) {
	case "daemon", "scmid":
		return daemonTemplate, nil
	case "board":
		data, err := MarshalBoard(DefaultBoard())
		if err != nil {
			return "", err
		}
		return string(data), nil
	default:
		return "", fmt.Errorf("unknown config kind: %s", kind)
	}
}

func WriteTemplate(path, kind string, overwrite bool) error {
	template, err := Template(kind)
	if err != nil {
		return err
	}
	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config already exists: %s", path)
		}
	}
	return os.WriteFile(path, []byte(template), 0o600)
}

const daemonTemplate = `name = "scmid"
board = ""
ack_polls = 2

[doorbell]
addr = "127.0.0.1:9310"
slot_size = 128
max_payload = 4096
token = ""
read_timeout = "15s"
security_mode = "development"
tls_enabled = false
tls_mutual = false
tls_cert_file = ""
tls_key_file = ""
tls_ca_file = ""

# client certificate common name = agent id, required in production
[doorbell.agents]

[admin]
enabled = true
addr = "127.0.0.1:9300"
token = ""
cors_origins = ["http://localhost:3000"]
`
