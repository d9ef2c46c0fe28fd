package config

import (
	"os"
	"strconv"
	"strings"
)

type Env struct {
	AppAddr string
	GinMode string

	DBUser string
	DBPass string
	DBHost string
	DBName string

	JWTSecret string

	// Dispatch policy knobs.
	MinDepositRatio    float64 // fraction of booking cost that must be confirmed-paid before assignment
	AllowCrossBranch   bool    // permit assigning resources from another branch
	LongTripKm         int     // beyond this distance a trip gets a co-driver
	WorkloadWindowDays int     // days around a trip counted as "surrounding period" for workload
}

func LoadEnv() Env {
	return Env{
		AppAddr: getenv("APP_ADDR", ":8080"),
		GinMode: strings.TrimSpace(os.Getenv("GIN_MODE")),

		DBUser: getenv("DB_USER", "root"),
		DBPass: strings.TrimSpace(os.Getenv("DB_PASS")),
		DBHost: getenv("DB_HOST", "127.0.0.1:3306"),
		DBName: getenv("DB_NAME", "transport_backoffice"),

		JWTSecret: getenv("JWT_SECRET", "super-secret-key-change-me"),

		MinDepositRatio:    getenvFloat("DISPATCH_MIN_DEPOSIT_RATIO", 0.5),
		AllowCrossBranch:   getenvBool("DISPATCH_ALLOW_CROSS_BRANCH", false),
		LongTripKm:         getenvInt("SINGLE_DRIVER_MAX_DISTANCE_KM", 300),
		WorkloadWindowDays: getenvInt("DISPATCH_WORKLOAD_WINDOW_DAYS", 7),
	}
}

func getenv(key, def string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	return v
}

func getenvInt(key string, def int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func getenvFloat(key string, def float64) float64 {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return def
	}
	return f
}

func getenvBool(key string, def bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}
