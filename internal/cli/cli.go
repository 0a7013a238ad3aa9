package cli

import (
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/kanopy-platform/appid-gateway/internal/server"
	"github.com/kanopy-platform/appid-gateway/pkg/appid"
	"github.com/prometheus/client_golang/prometheus"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

type RootCommand struct{}

func NewRootCommand() *cobra.Command {
	root := &RootCommand{}

	cmd := &cobra.Command{
		Use:               "appid-gateway",
		Short:             "Token gateway and client for IBM App ID",
		PersistentPreRunE: root.persistentPreRunE,
		RunE:              root.runE,
		SilenceUsage:      true,
	}

	cmd.PersistentFlags().String("log-level", "info", "Configure log level")
	cmd.PersistentFlags().String("base-auth-uri", "", "App ID OAuth server URL, e.g. https://us-south.appid.cloud.ibm.com/oauth/v4")
	cmd.PersistentFlags().String("tenant-id", "", "App ID tenant id")
	cmd.PersistentFlags().String("client-id", "", "oauth2 client id")
	cmd.PersistentFlags().String("client-secret-filepath", "", "path to oauth2 client secret")
	cmd.PersistentFlags().String("redirect-uri", "", "oauth2 redirect URI")
	cmd.PersistentFlags().String("redirect-route", "", "name of the application route handling the callback")
	cmd.PersistentFlags().String("idp", string(appid.IDPSAML), "identity provider: saml, appid_anon, facebook or google")
	cmd.PersistentFlags().Duration("timeout", 30*time.Second, "timeout for requests to App ID")

	cmd.Flags().String("listen-address", ":8080", "Server listen address")

	cmd.AddCommand(
		newAuthorizeURLCommand(),
		newIntrospectCommand(),
		newRevokeCommand(),
		newUserInfoCommand(),
	)

	return cmd
}

func (c *RootCommand) persistentPreRunE(cmd *cobra.Command, args []string) error {
	// bind flags to viper
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.SetEnvPrefix("app")
	viper.AutomaticEnv()

	if err := viper.BindPFlags(cmd.Flags()); err != nil {
		return err
	}

	// set log level
	logLevel, err := log.ParseLevel(viper.GetString("log-level"))
	if err != nil {
		return err
	}

	log.SetLevel(logLevel)

	return nil
}

func readSecret(path string) (string, error) {
	if path == "" {
		return "", nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}

	return strings.TrimSpace(string(data)), nil
}

func getProviderConfig() (appid.Config, error) {
	secret, err := readSecret(viper.GetString("client-secret-filepath"))
	if err != nil {
		return appid.Config{}, err
	}

	return appid.Config{
		BaseAuthURI:   strings.TrimSuffix(viper.GetString("base-auth-uri"), "/"),
		TenantID:      viper.GetString("tenant-id"),
		RedirectRoute: viper.GetString("redirect-route"),
		IDP:           appid.IDP(viper.GetString("idp")),
		ClientID:      viper.GetString("client-id"),
		ClientSecret:  secret,
		RedirectURL:   viper.GetString("redirect-uri"),
		HTTPClient:    appid.DefaultHTTPClient(viper.GetDuration("timeout")),
	}, nil
}

func newProvider() (*appid.Provider, error) {
	cfg, err := getProviderConfig()
	if err != nil {
		return nil, err
	}

	return appid.New(cfg)
}

func (c *RootCommand) runE(cmd *cobra.Command, args []string) error {
	addr := viper.GetString("listen-address")

	cfg, err := getProviderConfig()
	if err != nil {
		return err
	}

	registry := prometheus.NewRegistry()
	cfg.HTTPClient, err = server.InstrumentClient(cfg.HTTPClient, registry)
	if err != nil {
		return err
	}

	provider, err := appid.New(cfg)
	if err != nil {
		return err
	}

	s, err := server.New(
		server.WithTokenService(provider),
		server.WithRegistry(registry),
	)
	if err != nil {
		return err
	}

	log.WithFields(log.Fields{
		"tenant": provider.TenantID(),
		"idp":    provider.IDP(),
	}).Printf("Starting server on %s", addr)

	log.Debug("debug mode on")

	return http.ListenAndServe(addr, s)
}
