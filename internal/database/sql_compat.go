package database

import (
	"os"
	"regexp"
	"strconv"
	"strings"
	"sync"
)

var (
	driverMu sync.RWMutex
	driver   string
)

// SetDriver pins the active driver name. Open calls it automatically; tests
// may call it (or set TEST_DB_DRIVER) to choose a placeholder dialect.
func SetDriver(name string) {
	driverMu.Lock()
	driver = strings.ToLower(name)
	driverMu.Unlock()
}

// Driver returns the active database driver name.
func Driver() string {
	driverMu.RLock()
	d := driver
	driverMu.RUnlock()
	if d != "" {
		return d
	}
	if env := os.Getenv("TEST_DB_DRIVER"); env != "" {
		return strings.ToLower(env)
	}
	if env := os.Getenv("DB_DRIVER"); env != "" {
		return strings.ToLower(env)
	}
	return "mysql"
}

// IsMySQL reports whether the active driver is MySQL/MariaDB.
func IsMySQL() bool {
	d := Driver()
	return d == "mysql" || d == "mariadb"
}

// IsPostgres reports whether the active driver is PostgreSQL.
func IsPostgres() bool {
	return Driver() == "postgres"
}

var placeholderRe = regexp.MustCompile(`\$\d+`)

// ConvertPlaceholders converts PostgreSQL placeholders ($1, $2) to MySQL
// placeholders (?). Queries are written in PostgreSQL form and converted on
// the fly for MySQL.
func ConvertPlaceholders(query string) string {
	if !IsMySQL() {
		return query
	}

	result := placeholderRe.ReplaceAllString(query, "?")

	// MySQL collations are case-insensitive by default.
	result = strings.ReplaceAll(result, " ILIKE ", " LIKE ")
	result = strings.ReplaceAll(result, " ilike ", " LIKE ")

	return result
}

// RemapArgs expands positional arguments so repeated placeholders ($2 used
// twice) receive the same value under MySQL's purely positional binding.
var argRe = regexp.MustCompile(`\$(\d+)`)

func RemapArgs(query string, args []any) []any {
	if !IsMySQL() {
		return args
	}

	matches := argRe.FindAllStringSubmatch(query, -1)
	if len(matches) == 0 {
		return args
	}

	expanded := make([]any, len(matches))
	for i, match := range matches {
		idx, err := strconv.Atoi(match[1])
		if err != nil || idx < 1 || idx > len(args) {
			return args
		}
		expanded[i] = args[idx-1]
	}

	return expanded
}
