package observability

import (
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/danmuck/scmictl/internal/logging"
)

// InitLogger installs the runtime profile as the global logger, tagged
// with app.
func InitLogger(app string) zerolog.Logger {
	cfg := logging.Resolve(logging.ProfileRuntime)
	zerolog.SetGlobalLevel(cfg.Level)
	logger := logging.New(cfg, os.Stdout).With().Str("app", app).Logger()
	log.Logger = logger
	return logger
}
