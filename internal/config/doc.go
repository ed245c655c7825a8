// Package config defines configuration structures for the mopsdl CLI.
//
// Configuration can be provided via:
//   - Command-line flags
//   - Environment variables (MOPSDL_ prefix), optionally from a .env file
//   - YAML configuration file
//
// Flags override the environment, which overrides the file.
//
// # Structure
//
//	type Config struct {
//	    Origin            string
//	    ListingPath       string
//	    SaveDirectory     string
//	    MaxTasks          int
//	    Timeout           time.Duration
//	    RequestsPerSecond float64
//	    UserAgent         string
//	    WarmUp            time.Duration
//	    LogLevel          string
//	    MetricsFile       string
//	}
package config
