package config // package config loads application configuration from environment variables

import (
    "log"      // log is used to report configuration errors and halt execution
    "os"       // os provides access to environment variables
    "strconv"  // strconv converts strings to other types
    "strings"  // strings splits list-valued variables
)

// Config holds all runtime configuration values.  Each field corresponds to
// an environment variable.  The types reflect how the values are used in
// the application: strings for identifiers and secrets, ints for durations and costs.
type Config struct {
    Env         string   // application environment (e.g. "dev", "prod")
    Port        string   // HTTP port to listen on
    DBUser      string   // database username
    DBPass      string   // database password (optional)
    DBHost      string   // database host address
    DBPort      string   // database port number
    DBName      string   // database name
    JWTSecret   string   // secret used to sign chat tokens
    TokenTTLMin int      // token time‑to‑live in minutes; also the revocation cache TTL
    BcryptCost  int      // bcrypt cost for password hashing
    Origins     []string // allowed Origin values for the websocket endpoint
}

// Load reads configuration values from environment variables and returns a
// Config.  Required variables are enforced by must() and missing values
// cause the program to exit with a fatal log message.
func Load() Config {
    return Config{
        Env:         must("APP_ENV"),             // environment (dev/test/prod)
        Port:        must("APP_PORT"),            // port to bind the HTTP server
        DBUser:      must("DB_USER"),             // database user
        DBPass:      os.Getenv("DB_PASS"),        // database password (empty allowed)
        DBHost:      must("DB_HOST"),             // database host
        DBPort:      must("DB_PORT"),             // database port
        DBName:      must("DB_NAME"),             // database name
        JWTSecret:   must("JWT_SECRET"),          // secret used for signing tokens
        TokenTTLMin: envInt("TOKEN_TTL_MIN", 15), // token lifetime in minutes
        BcryptCost:  envInt("BCRYPT_COST", 12),   // bcrypt cost factor
        Origins:     origins(),                   // websocket origin allow-list
    }
}

// origins parses the ORIGINS variable as a comma-separated list of allowed
// Origin header values for websocket upgrades.  When unset, only local
// development origins are accepted.
func origins() []string {
    raw := os.Getenv("ORIGINS")
    if raw == "" {
        return []string{"http://localhost:8080", "http://127.0.0.1:8080"}
    }
    var out []string
    for _, o := range strings.Split(raw, ",") {
        if o = strings.TrimSpace(o); o != "" {
            out = append(out, o)
        }
    }
    return out
}

// must retrieves the value of a required environment variable.  If the
// variable is unset or empty, the application logs a fatal error and exits.
func must(key string) string {
    v, ok := os.LookupEnv(key)
    if !ok || v == "" {
        log.Fatalf("missing required env var: %s", key)
    }
    return v
}

// envInt retrieves an optional integer environment variable.  Unset values
// fall back to the provided default; malformed values are fatal so that a
// typo never silently changes token lifetimes or hashing costs.
func envInt(key string, def int) int {
    s := os.Getenv(key)
    if s == "" {
        return def
    }
    n, err := strconv.Atoi(s)
    if err != nil {
        log.Fatalf("invalid int for %s: %q", key, s)
    }
    return n
}
