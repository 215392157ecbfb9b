package config

import (
	"flag"
	"os"
	"time"

	"github.com/dmitrijs2005/authkeeper/internal/flagx"
)

// parseFlags populates selected server Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-a string   HTTP bind address (e.g., ":9000")
//	-d string   PostgreSQL DSN
//	-production bool   production clock mode (pass as -production=true)
//	-m int      max pending password stretches
//	-q float    customs sustained rate, events per second
//	-b int      customs burst
//	-v int      verifier version for new credentials
//	-w int      shutdown timeout, seconds
//
// Notes:
//   - The function first filters os.Args to only the flags it recognizes using
//     flagx.FilterArgs, avoiding collisions with other components.
func parseFlags(config *Config) {
	// Filter args to include only the flags handled here.
	args := flagx.FilterArgs(os.Args[1:], []string{"-a", "-d", "-production", "-m", "-q", "-b", "-v", "-w"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.EndpointAddr, "a", config.EndpointAddr, "address and port to run server")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.BoolVar(&config.Production, "production", config.Production, "production clock mode")
	fs.IntVar(&config.ScryptMaxPending, "m", config.ScryptMaxPending, "max pending password stretches")
	fs.Float64Var(&config.CustomsRate, "q", config.CustomsRate, "customs rate (events per second)")
	fs.IntVar(&config.CustomsBurst, "b", config.CustomsBurst, "customs burst")
	fs.IntVar(&config.VerifierVersion, "v", config.VerifierVersion, "verifier version for new credentials")

	shutdownTimeout := fs.Int("w", int(config.ShutdownTimeout.Seconds()), "shutdown timeout (in seconds)")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	config.ShutdownTimeout = time.Duration(*shutdownTimeout) * time.Second
}
