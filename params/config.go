package params

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type RPC struct {
	Endpoint string
	// Timeout bounds every balance lookup against the ledger. An expired
	// lookup is reported as "verifier unavailable", not as a low balance.
	Timeout time.Duration
}

type Server struct {
	Addr        string
	CORSOrigins []string
}

type Config struct {
	RPC     RPC
	Server  Server
	BookDB  string // pebble directory holding the order book snapshot
	LogFile string // empty means console only
}

func Default() Config {
	return Config{
		RPC: RPC{
			Endpoint: "http://localhost:8899",
			Timeout:  10 * time.Second,
		},
		Server: Server{
			Addr:        ":8080",
			CORSOrigins: []string{"http://localhost:3000"},
		},
		BookDB:  "data/order_book.db",
		LogFile: "",
	}
}

// LoadFromEnv loads configuration from .env file (if exists) and environment variables
// Priority: ENV > .env file > defaults
func LoadFromEnv(envPath string) Config {
	cfg := Default()

	// Try to load .env file (optional - won't fail if not exists)
	if envPath != "" {
		_ = godotenv.Load(envPath)
	} else {
		_ = godotenv.Load() // loads .env from current directory
	}

	if ep := os.Getenv("RPC_ENDPOINT"); ep != "" {
		cfg.RPC.Endpoint = ep
	}
	if ms := os.Getenv("RPC_TIMEOUT_MS"); ms != "" {
		if v, err := strconv.Atoi(ms); err == nil && v > 0 {
			cfg.RPC.Timeout = time.Duration(v) * time.Millisecond
		}
	}
	if addr := os.Getenv("API_ADDR"); addr != "" {
		cfg.Server.Addr = addr
	}
	if origins := os.Getenv("CORS_ORIGINS"); origins != "" {
		cfg.Server.CORSOrigins = strings.Split(origins, ",")
	}
	if db := os.Getenv("ORDER_BOOK_DB"); db != "" {
		cfg.BookDB = db
	}
	if lf := os.Getenv("LOG_FILE"); lf != "" {
		cfg.LogFile = lf
	}

	return cfg
}
