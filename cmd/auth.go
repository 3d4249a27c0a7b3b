package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/desertthunder/otv/internal/server"
	"github.com/desertthunder/otv/internal/services"
	"github.com/desertthunder/otv/internal/shared"
	"github.com/urfave/cli/v3"
	"golang.org/x/oauth2"
)

// AuthSpotify performs the OAuth2 authorization flow for Spotify.
//
// Starts a local callback server, opens the browser for user authorization and saves the exchanged tokens.
func (r *Runner) AuthSpotify(ctx context.Context, cmd *cli.Command) error {
	spotify, err := r.spotifyService()
	if err != nil {
		return err
	}

	if err := r.authorizeSpotify(ctx, spotify, true); err != nil {
		return err
	}

	r.writePlainln("✓ Authorization successful")
	r.writePlain("✓ Tokens saved to %s\n\n", r.configPath)
	r.writePlain("You can now use: otv scan\n")
	return nil
}

// AuthStatus checks whether the selected service grants library access.
func (r *Runner) AuthStatus(ctx context.Context, cmd *cli.Command) error {
	svc, err := r.service(cmd.String("service"))
	if err != nil {
		return err
	}

	r.logger.Info("checking authorization", "service", svc.Name())
	if err := svc.Authorize(ctx); err != nil {
		r.writePlain("✗ %s: access required\n", svc.Name())
		return err
	}
	return r.writePlain("✓ %s: access granted\n", svc.Name())
}

func (r *Runner) spotifyService() (*services.SpotifyService, error) {
	svc, err := r.service(serviceSpotify)
	if err != nil {
		return nil, err
	}

	spotify, ok := svc.(*services.SpotifyService)
	if !ok {
		return nil, fmt.Errorf("%w: %s does not support OAuth authorization", shared.ErrInvalidArgument, svc.Name())
	}
	return spotify, nil
}

// authorizeSpotify runs the OAuth flow, installs the new token on spotify and saves it to the config file.
//
// When verbose is false nothing is printed and a browser that cannot be opened is an error.
func (r *Runner) authorizeSpotify(ctx context.Context, spotify *services.SpotifyService, verbose bool) error {
	token, err := r.doOAuth(ctx, spotify, verbose)
	if err != nil {
		return err
	}

	spotify.SetToken(token)
	return r.saveTokens(token)
}

// saveTokens stores token in the Spotify credentials and writes the config file.
func (r *Runner) saveTokens(token *oauth2.Token) error {
	if err := r.config.Credentials.Spotify.UpdateToken(token); err != nil {
		return fmt.Errorf("failed to update spotify configuration: %w", err)
	}

	if err := shared.SaveConfig(r.configPath, r.config); err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}
	r.logger.Info("spotify tokens saved", "path", r.configPath)
	return nil
}

// doOAuth executes the OAuth2 authorization flow with a local callback server
func (r *Runner) doOAuth(ctx context.Context, spotify *services.SpotifyService, verbose bool) (*oauth2.Token, error) {
	state, err := shared.GenerateState()
	if err != nil {
		return nil, fmt.Errorf("failed to generate state token: %w", err)
	}

	handler := server.NewOAuthHandler(spotify.OAuthConfig(), state)
	addr := fmt.Sprintf("%s:%d", r.config.Server.Host, r.config.Server.Port)
	callback, err := server.NewCallbackServer(addr, handler, r.logger)
	if err != nil {
		return nil, err
	}
	callback.Start()

	authURL := spotify.AuthURL(state)
	if verbose {
		r.writePlain("→ Opening browser for Spotify authorization...\n")
	}
	if err := shared.OpenBrowser(authURL); err != nil {
		r.logger.Warnf("failed to open browser automatically %v", err)
		if !verbose {
			callback.Shutdown()
			return nil, fmt.Errorf("%w: could not open a browser, run `otv auth spotify` instead", shared.ErrAuthFailed)
		}
		r.writePlainln("⚠ Could not open browser automatically.")
		r.writePlain("Please open this URL in your browser:\n%s\n\n", authURL)
	}

	if verbose {
		r.writePlain("→ Waiting for authorization (%s timeout)...\n", server.DefaultTimeout)
	}

	token, err := callback.Wait(ctx, server.DefaultTimeout)
	if err != nil {
		if errors.Is(err, shared.ErrTimeout) || errors.Is(err, shared.ErrCancelled) {
			return nil, err
		}
		return nil, fmt.Errorf("authorization failed: %w", err)
	}
	return token, nil
}
