package commands

import (
	"context"
	"fmt"
	"os"

	"sjrako-backend/lib/configutil"
	configlibsql "sjrako-backend/lib/configutil/libsql"
	"sjrako-backend/lib/pagedriver/restydriver"
	"sjrako-backend/lib/scrapers/sjrako/core"
	"sjrako-backend/lib/scrapers/sjrako/menu"
	"sjrako-backend/lib/scrapers/sjrako/order"
	"sjrako-backend/services/autopilot"

	"github.com/spf13/cobra"
)

type CredentialsConfig struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type Config struct {
	// defaults to the production portal
	BaseUrl     string              `json:"base_url"`
	Credentials CredentialsConfig   `json:"credentials"`
	Archive     configlibsql.Struct `json:"archive"`
	// path to the lunch rating dataset csv
	Dataset   string               `json:"dataset"`
	Autopilot autopilot.Config     `json:"autopilot"`
	Smtp      autopilot.SmtpConfig `json:"smtp"`
	ReportTo  []string             `json:"report_to"`
}

var config Config

var rootCmd = &cobra.Command{
	Use:   "sjrako-cli",
	Short: "sjrako-cli reads menus, credit and orders lunches on the sjrako canteen portal.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		config, err = configutil.ReadRecursively[Config]("sjrako.json5")
		if err != nil && !os.IsNotExist(err) {
			return err
		}
		return nil
	},
}

func ExecuteContext(ctx context.Context) {
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newClient() (*core.Client, error) {
	baseUrl := config.BaseUrl
	if baseUrl == "" {
		baseUrl = core.BaseUrl
	}
	driver, err := restydriver.New(restydriver.Options{BaseUrl: baseUrl})
	if err != nil {
		return nil, err
	}
	return core.NewClient(core.ClientOptions{
		Driver:  driver,
		BaseUrl: baseUrl,
	}), nil
}

// login builds a client and logs it in with the configured
// credentials. Callers must Close the client when done.
func login(ctx context.Context) (*core.Client, error) {
	if config.Credentials.Username == "" {
		return nil, fmt.Errorf("no credentials are configured, set credentials.username in sjrako.json5")
	}
	client, err := newClient()
	if err != nil {
		return nil, err
	}
	err = client.Login(ctx, config.Credentials.Username, config.Credentials.Password)
	if err != nil {
		client.Close(ctx)
		return nil, err
	}
	return client, nil
}

func newRepository(client *core.Client) *menu.Repository {
	return menu.NewRepository(client)
}

func newController(client *core.Client) (*menu.Repository, *order.Controller) {
	menus := newRepository(client)
	return menus, order.NewController(client, menus)
}
