// nokectl es un cliente de línea de comandos que se comporta como un plugin de
// NoKe: se empareja con el backend y consume el data plane con rolling keys.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/dropDatabas3/noke/internal/observability/logger"
	"github.com/dropDatabas3/noke/internal/pluginclient"
	"github.com/dropDatabas3/noke/internal/util"
)

var version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		if errors.Is(err, pluginclient.ErrReauthRequired) {
			fmt.Fprintln(os.Stderr, "la sesión del plugin expiró: ejecutá `nokectl pair`")
		} else {
			fmt.Fprintln(os.Stderr, "error:", err)
		}
		os.Exit(1)
	}
}

func defaultCredsPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ".nokectl.json"
	}
	return filepath.Join(dir, "noke", "plugin.json")
}

func newRootCmd() *cobra.Command {
	var (
		serverURL string
		credsPath string
		interval  time.Duration
		jsonOut   bool
		verbose   bool
	)

	client := func() *pluginclient.Client {
		return pluginclient.New(serverURL, pluginclient.NewFileStore(credsPath),
			pluginclient.WithPollPolicy(pluginclient.PollPolicy{Interval: interval}))
	}

	root := &cobra.Command{
		Use:           "nokectl",
		Short:         "Cliente de plugin para NoKe",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(*cobra.Command, []string) {
			level := "warn"
			if verbose {
				level = "debug"
			}
			logger.Init(logger.Config{Env: "dev", Level: level, ServiceName: "nokectl", Version: version})
			logger.S().Debugf("server=%s creds=%s", serverURL, credsPath)
		},
	}
	pf := root.PersistentFlags()
	pf.StringVar(&serverURL, "server", envOr("NOKE_SERVER", "http://localhost:8080"), "URL base del backend (env NOKE_SERVER)")
	pf.StringVar(&credsPath, "creds", envOr("NOKE_CREDS", defaultCredsPath()), "archivo de credenciales del plugin (env NOKE_CREDS)")
	pf.DurationVar(&interval, "poll-interval", 2*time.Second, "intervalo de polling durante el pairing")
	pf.BoolVar(&jsonOut, "json", false, "salida JSON")
	pf.BoolVarP(&verbose, "verbose", "v", false, "logs de depuración")

	out := func(cmd *cobra.Command, v any, text func()) error {
		if jsonOut {
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(v)
		}
		text()
		return nil
	}

	registerCmd := &cobra.Command{
		Use:   "register",
		Short: "Registra una instancia nueva del plugin",
		RunE: func(cmd *cobra.Command, _ []string) error {
			creds, err := client().Register(cmd.Context())
			if err != nil {
				return err
			}
			return out(cmd, map[string]string{"pluginId": creds.PluginID}, func() {
				fmt.Fprintln(cmd.OutOrStdout(), "plugin registrado:", creds.PluginID)
			})
		},
	}

	pairCmd := &cobra.Command{
		Use:   "pair",
		Short: "Empareja el plugin: abre la URL en el navegador y aprobá",
		RunE: func(cmd *cobra.Command, _ []string) error {
			w := cmd.ErrOrStderr()
			creds, err := client().Pair(cmd.Context(), func(ar *pluginclient.AuthRequest) {
				fmt.Fprintf(w, "Abrí esta URL para autorizar (vence en %s):\n\n  %s\n\nEsperando aprobación...\n", ar.ExpiresIn, ar.AuthURL)
			})
			if err != nil {
				return err
			}
			return out(cmd, map[string]string{"username": creds.Username}, func() {
				fmt.Fprintln(cmd.OutOrStdout(), "emparejado como", creds.Username)
			})
		},
	}

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Muestra las credenciales guardadas (enmascaradas)",
		RunE: func(cmd *cobra.Command, _ []string) error {
			creds, err := client().Credentials(cmd.Context())
			if errors.Is(err, pluginclient.ErrNoCredentials) {
				fmt.Fprintln(cmd.OutOrStdout(), "sin credenciales en", credsPath)
				return nil
			}
			if err != nil {
				return err
			}
			view := map[string]any{
				"pluginId":     creds.PluginID,
				"pluginSecret": util.MaskSecret(creds.PluginSecret),
				"username":     creds.Username,
				"rollingKey":   util.MaskSecret(creds.RollingKey),
				"keyVersion":   creds.KeyVersion,
				"staticToken":  util.MaskSecret(creds.StaticToken),
				"paired":       creds.Paired(),
			}
			return out(cmd, view, func() {
				tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				for _, k := range []string{"pluginId", "pluginSecret", "username", "rollingKey", "keyVersion", "staticToken", "paired"} {
					fmt.Fprintf(tw, "%s\t%v\n", k, view[k])
				}
				_ = tw.Flush()
			})
		},
	}

	validateCmd := &cobra.Command{
		Use:   "validate",
		Short: "Valida las credenciales actuales (rota la key)",
		RunE: func(cmd *cobra.Command, _ []string) error {
			user, err := client().Validate(cmd.Context())
			if err != nil {
				return err
			}
			return out(cmd, map[string]any{"valid": true, "username": user}, func() {
				fmt.Fprintln(cmd.OutOrStdout(), "ok:", user)
			})
		},
	}

	printEntries := func(cmd *cobra.Command, entries []pluginclient.Entry) {
		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "ID\tNAME\tUSERNAME\tURL")
		for _, e := range entries {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", e.ID, e.Name, e.LoginUsername, e.URL)
		}
		_ = tw.Flush()
	}

	entriesCmd := &cobra.Command{
		Use:   "entries",
		Short: "Lista las entradas de la bóveda",
		RunE: func(cmd *cobra.Command, _ []string) error {
			entries, err := client().Entries(cmd.Context())
			if err != nil {
				return err
			}
			return out(cmd, entries, func() { printEntries(cmd, entries) })
		},
	}

	searchCmd := &cobra.Command{
		Use:   "search <url>",
		Short: "Busca entradas por dominio",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := client().Search(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return out(cmd, res, func() {
				fmt.Fprintln(cmd.OutOrStdout(), "dominio:", res.MatchedDomain)
				printEntries(cmd, res.Entries)
			})
		},
	}

	var (
		length  int
		noUpper bool
		noLower bool
		noNum   bool
		noSym   bool
	)
	generateCmd := &cobra.Command{
		Use:   "generate",
		Short: "Genera una contraseña",
		RunE: func(cmd *cobra.Command, _ []string) error {
			opts := pluginclient.GenerateOptions{}
			if cmd.Flags().Changed("length") {
				opts.Length = &length
			}
			for _, f := range []struct {
				name string
				off  bool
				dst  **bool
			}{
				{"no-upper", noUpper, &opts.Uppercase},
				{"no-lower", noLower, &opts.Lowercase},
				{"no-numbers", noNum, &opts.Numbers},
				{"no-symbols", noSym, &opts.Symbols},
			} {
				if cmd.Flags().Changed(f.name) {
					on := !f.off
					*f.dst = &on
				}
			}
			pw, err := client().Generate(cmd.Context(), opts)
			if err != nil {
				return err
			}
			return out(cmd, map[string]string{"password": pw}, func() {
				fmt.Fprintln(cmd.OutOrStdout(), pw)
			})
		},
	}
	gf := generateCmd.Flags()
	gf.IntVarP(&length, "length", "l", 16, "largo (4-128)")
	gf.BoolVar(&noUpper, "no-upper", false, "sin mayúsculas")
	gf.BoolVar(&noLower, "no-lower", false, "sin minúsculas")
	gf.BoolVar(&noNum, "no-numbers", false, "sin números")
	gf.BoolVar(&noSym, "no-symbols", false, "sin símbolos")

	tokenCmd := &cobra.Command{
		Use:   "token <static-token>",
		Short: "Guarda un token estático como credencial de respaldo",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := client().SetStaticToken(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "token guardado:", util.MaskSecret(args[0]))
			return nil
		},
	}

	logoutCmd := &cobra.Command{
		Use:   "logout",
		Short: "Borra las credenciales locales",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return client().Logout(cmd.Context())
		},
	}

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Muestra la versión",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), version)
		},
	}

	root.AddCommand(registerCmd, pairCmd, statusCmd, validateCmd, entriesCmd, searchCmd, generateCmd, tokenCmd, logoutCmd, versionCmd)
	return root
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
