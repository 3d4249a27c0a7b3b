package main

import (
	"context"
	"fmt"
	"os"

	"github.com/desertthunder/otv/internal/shared"
	"github.com/urfave/cli/v3"
)

// Setup creates the config file when it is missing, then initializes the database and runs migrations.
func (r *Runner) Setup(ctx context.Context, cmd *cli.Command) error {
	if _, err := os.Stat(r.configPath); err == nil {
		r.logger.Info("using existing config file", "path", r.configPath)
	} else {
		r.logger.Info("config file not found, creating from template", "path", r.configPath)
		if err := shared.CreateConfigFile(r.configPath); err != nil {
			return fmt.Errorf("failed to create config file: %w", err)
		}
		r.writePlain("✓ Config file created at %s\n", r.configPath)
	}

	r.logger.Info("initializing database", "path", r.config.Database.Path)
	if _, err := r.runs(); err != nil {
		return err
	}
	r.logger.Infof("setup complete for database: %v", r.config.Database.Path)

	r.writePlain("✓ Run history database ready at %s\n", r.config.Database.Path)
	if !r.config.Credentials.Spotify.Authorized() {
		r.writePlainln("Next steps:")
		r.writePlain("1. Set credentials.spotify.client_id and client_secret in %s\n", r.configPath)
		r.writePlain("2. Run 'otv auth spotify' to grant access to your library\n")
		r.writePlain("3. Run 'otv scan' to see which songs would be replaced\n")
	}
	return nil
}
