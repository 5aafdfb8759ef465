package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

var (
	ErrMissingEnv = errors.New("missing-env")
	ErrInvalidEnv = errors.New("invalid-env")
)

const (
	DefaultHTTPAddr = ":5000"
	DefaultMaxRooms = 999
)

const TokenAge = time.Hour * 24 * 7

type Config struct {
	AllowedOrigins []string
	PostgresURL    string
	JWTKey         string
	RedisAddr      string
	DictionaryURL  string
	DictionaryKey  string
	HTTPAddr       string
	MaxRooms       int
	Debug          bool
}

// Load reads the process environment. A .env file in the working directory,
// when present, fills in variables that are not already set.
func Load() (Config, error) {
	_ = godotenv.Load()
	return FromLookup(os.LookupEnv)
}

func FromLookup(lookup func(string) (string, bool)) (Config, error) {
	cfg := Config{
		HTTPAddr: DefaultHTTPAddr,
		MaxRooms: DefaultMaxRooms,
	}

	required := func(key string) (string, error) {
		v, ok := lookup(key)
		if !ok || strings.TrimSpace(v) == "" {
			return "", fmt.Errorf("%w: %s", ErrMissingEnv, key)
		}
		return v, nil
	}

	origins, err := required("ALLOWED_ORIGINS")
	if err != nil {
		return Config{}, err
	}
	for _, o := range strings.Split(origins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			cfg.AllowedOrigins = append(cfg.AllowedOrigins, o)
		}
	}

	if cfg.PostgresURL, err = required("POSTGRES_URL"); err != nil {
		return Config{}, err
	}
	if cfg.JWTKey, err = required("JWT_KEY"); err != nil {
		return Config{}, err
	}
	if cfg.DictionaryURL, err = required("DICTIONARY_URL"); err != nil {
		return Config{}, err
	}

	cfg.RedisAddr, _ = lookup("REDIS_ADDR")
	cfg.DictionaryKey, _ = lookup("DICTIONARY_KEY")

	if v, ok := lookup("HTTP_ADDR"); ok && v != "" {
		cfg.HTTPAddr = v
	}

	if v, ok := lookup("MAX_ROOMS"); ok && v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return Config{}, fmt.Errorf("%w: MAX_ROOMS=%q", ErrInvalidEnv, v)
		}
		cfg.MaxRooms = n
	}

	if v, ok := lookup("DEBUG"); ok {
		cfg.Debug, _ = strconv.ParseBool(v)
	}

	return cfg, nil
}
