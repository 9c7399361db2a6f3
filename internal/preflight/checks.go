package preflight

import (
	"context"
	"log"
	"os"
	"time"

	"later/internal/database"
)

// CheckResult represents the result of a preflight check
type CheckResult struct {
	Name    string
	Status  string // "pass", "fail", "warning"
	Message string
	Error   error
}

// Checker performs pre-flight checks before the server starts serving.
type Checker struct {
	db             *database.MongoDB
	requiredEnvars []string
}

// NewChecker creates a new preflight checker.
func NewChecker(db *database.MongoDB) *Checker {
	return &Checker{
		db: db,
		requiredEnvars: []string{
			"MONGODB_URI",
		},
	}
}

// RunAll runs all preflight checks and returns results.
func (c *Checker) RunAll() []CheckResult {
	log.Println("🔍 Running pre-flight checks...")

	results := []CheckResult{
		c.checkDatabaseConnection(),
		c.checkEnvironmentVariables(),
		c.checkJWTSecret(),
	}

	passed, failed, warnings := 0, 0, 0
	for _, result := range results {
		switch result.Status {
		case "pass":
			log.Printf("   ✅ %s: %s", result.Name, result.Message)
			passed++
		case "fail":
			log.Printf("   ❌ %s: %s", result.Name, result.Message)
			if result.Error != nil {
				log.Printf("      Error: %v", result.Error)
			}
			failed++
		case "warning":
			log.Printf("   ⚠️  %s: %s", result.Name, result.Message)
			warnings++
		}
	}

	log.Printf("\n📊 Pre-flight summary: %d passed, %d failed, %d warnings\n", passed, failed, warnings)
	return results
}

// HasFailures returns true if any check failed.
func HasFailures(results []CheckResult) bool {
	for _, result := range results {
		if result.Status == "fail" {
			return true
		}
	}
	return false
}

func (c *Checker) checkDatabaseConnection() CheckResult {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := c.db.Ping(ctx); err != nil {
		return CheckResult{
			Name:    "MongoDB Connection",
			Status:  "fail",
			Message: "Cannot connect to MongoDB",
			Error:   err,
		}
	}
	return CheckResult{
		Name:    "MongoDB Connection",
		Status:  "pass",
		Message: "Connected",
	}
}

func (c *Checker) checkEnvironmentVariables() CheckResult {
	var missing []string
	for _, name := range c.requiredEnvars {
		if os.Getenv(name) == "" {
			missing = append(missing, name)
		}
	}

	if len(missing) > 0 {
		return CheckResult{
			Name:    "Environment Variables",
			Status:  "fail",
			Message: "Missing required variables: " + joinNames(missing),
		}
	}
	return CheckResult{
		Name:    "Environment Variables",
		Status:  "pass",
		Message: "All required variables set",
	}
}

func (c *Checker) checkJWTSecret() CheckResult {
	secret := os.Getenv("JWT_SECRET")
	environment := os.Getenv("ENVIRONMENT")

	if secret == "" {
		if environment == "production" {
			return CheckResult{
				Name:    "JWT Secret",
				Status:  "fail",
				Message: "JWT_SECRET must be set in production",
			}
		}
		return CheckResult{
			Name:    "JWT Secret",
			Status:  "warning",
			Message: "JWT_SECRET not set, auth runs in development bypass mode",
		}
	}

	if len(secret) < 32 {
		return CheckResult{
			Name:    "JWT Secret",
			Status:  "warning",
			Message: "JWT_SECRET is shorter than 32 characters",
		}
	}

	return CheckResult{
		Name:    "JWT Secret",
		Status:  "pass",
		Message: "Configured",
	}
}

func joinNames(names []string) string {
	out := ""
	for i, n := range names {
		if i > 0 {
			out += ", "
		}
		out += n
	}
	return out
}
