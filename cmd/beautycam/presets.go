package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/dudu/beautycam/internal/effects"
	"github.com/dudu/beautycam/internal/presets"
)

var presetsCmd = &cobra.Command{
	Use:   "presets",
	Short: "Manage filter presets",
}

var presetsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List built-in and saved presets",
	RunE: func(cmd *cobra.Command, args []string) error {
		_, ps, store, err := openPresets(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer store.Close()

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
		fmt.Fprintln(w, "ID\tNAME\tSMOOTH\tBRIGHT\tSAT\tCONTRAST\tWARMTH\tCREATED")
		fmt.Fprintln(w, "--\t----\t------\t------\t---\t--------\t------\t-------")
		for _, b := range presets.Builtins() {
			printParams(w, b.Key, b.Icon+" "+b.Name, b.Params, "built-in")
		}
		for _, p := range ps.List() {
			printParams(w, p.ID, p.Name, p.Params, p.CreatedAt.Local().Format("2006-01-02 15:04"))
		}
		return w.Flush()
	},
}

var (
	saveFrom   string
	saveValues map[string]string
)

var presetsSaveCmd = &cobra.Command{
	Use:   "save NAME",
	Short: "Save a preset from a built-in and field overrides",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		params := effects.Defaults()
		if saveFrom != "" {
			b, ok := presets.LookupBuiltin(strings.ToUpper(saveFrom))
			if !ok {
				return fmt.Errorf("%w: %s", presets.ErrUnknownPreset, saveFrom)
			}
			params = b.Params
		}
		for name, raw := range saveValues {
			field, err := effects.ParseField(name)
			if err != nil {
				return err
			}
			v, err := strconv.ParseFloat(raw, 64)
			if err != nil {
				return fmt.Errorf("invalid value for %s: %w", name, err)
			}
			if params, err = params.With(field, v); err != nil {
				return err
			}
		}

		_, ps, store, err := openPresets(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer store.Close()

		p, err := ps.Save(cmd.Context(), args[0], params)
		if err != nil {
			return err
		}
		fmt.Printf("Saved preset %q (%s)\n", p.Name, p.ID)
		return nil
	},
}

var presetsDeleteCmd = &cobra.Command{
	Use:   "delete ID",
	Short: "Delete a saved preset",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		_, ps, store, err := openPresets(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer store.Close()

		if _, ok := ps.Get(args[0]); !ok {
			return fmt.Errorf("%w: %s", presets.ErrUnknownPreset, args[0])
		}
		if err := ps.Remove(cmd.Context(), args[0]); err != nil {
			return err
		}
		fmt.Printf("Deleted preset %s\n", args[0])
		return nil
	},
}

var presetsApplyCmd = &cobra.Command{
	Use:   "apply ID|KEY",
	Short: "Apply a preset on a running camera through its control API",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		addr := cfg.ControlAddr
		if addr == "" {
			addr = "127.0.0.1:8080"
		}
		if strings.HasPrefix(addr, ":") {
			addr = "127.0.0.1" + addr
		}

		path := "/presets/" + args[0] + "/apply"
		if _, ok := presets.LookupBuiltin(args[0]); ok {
			path = "/presets/builtin/" + args[0] + "/apply"
		}
		client := &http.Client{Timeout: 5 * time.Second}
		resp, err := client.Post("http://"+addr+path, "application/json", bytes.NewReader(nil))
		if err != nil {
			return fmt.Errorf("failed to reach control API at %s: %w", addr, err)
		}
		defer resp.Body.Close()
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return err
		}
		if resp.StatusCode != http.StatusOK {
			var e struct {
				Error string `json:"error"`
			}
			_ = json.Unmarshal(body, &e)
			return fmt.Errorf("apply failed: %s %s", resp.Status, e.Error)
		}

		var params effects.Parameters
		if err := json.Unmarshal(body, &params); err != nil {
			return err
		}
		w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
		printParams(w, args[0], "applied", params, "")
		return w.Flush()
	},
}

func printParams(w io.Writer, id, name string, p effects.Parameters, created string) {
	fmt.Fprintf(w, "%s\t%s\t%d\t%.0f\t%.2f\t%.2f\t%.2f\t%s\n",
		id, name, p.Smoothing, p.Brightness, p.Saturation, p.Contrast, p.Warmth, created)
}

func init() {
	presetsSaveCmd.Flags().StringVar(&saveFrom, "from", "", "Built-in preset to start from")
	presetsSaveCmd.Flags().StringToStringVar(&saveValues, "set", nil, "Field overrides, e.g. --set warmth=0.3,eyeEnlarge=4")

	presetsCmd.AddCommand(presetsListCmd, presetsSaveCmd, presetsDeleteCmd, presetsApplyCmd)
	rootCmd.AddCommand(presetsCmd)
}
