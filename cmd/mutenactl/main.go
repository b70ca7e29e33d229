package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/mutena/fotomutena/gallery"
	"github.com/mutena/fotomutena/models"
)

var (
	serverURL  string
	token      string
	collection string
	timeout    time.Duration
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:           "mutenactl",
	Short:         "Manage the FOTOMUTENA gallery from the command line",
	SilenceUsage:  true,
	SilenceErrors: true,
}

var loginCmd = &cobra.Command{
	Use:   "login <password>",
	Short: "Exchange the admin password for a token",
	Long: `Log in as the gallery administrator and print the bearer token.

Export it as MUTENA_TOKEN to use it with the other commands.`,
	Args: cobra.ExactArgs(1),
	RunE: runLogin,
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List the items of a collection",
	RunE:  runList,
}

var uploadCmd = &cobra.Command{
	Use:   "upload <file>",
	Short: "Upload an image file",
	Args:  cobra.ExactArgs(1),
	RunE:  runUpload,
}

var addURLCmd = &cobra.Command{
	Use:   "add-url <url>",
	Short: "Add an item for an image that is already hosted",
	Args:  cobra.ExactArgs(1),
	RunE:  runAddURL,
}

var deleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete an item by id",
	Args:  cobra.ExactArgs(1),
	RunE:  runDelete,
}

var moveCmd = &cobra.Command{
	Use:   "move <from> <to>",
	Short: "Move the item at position from to position to (0-based)",
	Args:  cobra.ExactArgs(2),
	RunE:  runMove,
}

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Show or update the contact settings",
	RunE:  runSettings,
}

var (
	itemTitle       string
	itemCategory    string
	itemDescription string
	filterCategory  string
	settingsFields  = map[string]*string{}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", envOr("MUTENA_SERVER", "http://localhost:8080"), "Gallery server URL (or set MUTENA_SERVER)")
	rootCmd.PersistentFlags().StringVar(&token, "token", os.Getenv("MUTENA_TOKEN"), "Admin bearer token (or set MUTENA_TOKEN)")
	rootCmd.PersistentFlags().StringVarP(&collection, "collection", "c", "photos", "Collection: photos or designs")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 2*time.Minute, "Operation timeout")

	for _, cmd := range []*cobra.Command{uploadCmd, addURLCmd} {
		cmd.Flags().StringVar(&itemTitle, "title", "", "Item title")
		cmd.Flags().StringVar(&itemCategory, "category", "", "Item category")
		cmd.Flags().StringVar(&itemDescription, "description", "", "Item description")
	}
	listCmd.Flags().StringVar(&filterCategory, "category", "", "Only show this category")

	for _, name := range []string{"phone", "email", "address", "instagram", "website"} {
		settingsFields[name] = settingsCmd.Flags().String(name, "", "Set contact "+name)
	}

	rootCmd.AddCommand(loginCmd, listCmd, uploadCmd, addURLCmd, deleteCmd, moveCmd, settingsCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func newContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), timeout)
}

func runLogin(cmd *cobra.Command, args []string) error {
	ctx, cancel := newContext()
	defer cancel()
	tok, expiresAt, err := gallery.NewClient(serverURL, "").Login(ctx, args[0])
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), tok)
	fmt.Fprintf(cmd.ErrOrStderr(), "valid until %s\n", expiresAt.Local().Format(time.RFC1123))
	return nil
}

func runList(cmd *cobra.Command, _ []string) error {
	ctx, cancel := newContext()
	defer cancel()
	state := gallery.NewState(gallery.NewClient(serverURL, token), collection)
	if err := state.Refresh(ctx); err != nil {
		return err
	}
	printRecords(cmd, state.Filter(filterCategory))
	return nil
}

func runUpload(cmd *cobra.Command, args []string) error {
	f, err := os.Open(args[0])
	if err != nil {
		return err
	}
	defer f.Close()

	ctx, cancel := newContext()
	defer cancel()
	res, err := gallery.NewClient(serverURL, token).Upload(ctx, collection, f.Name(), f, map[string]string{
		"title":       itemTitle,
		"category":    itemCategory,
		"description": itemDescription,
	})
	if err != nil {
		return err
	}
	return printResult(cmd, res)
}

func runAddURL(cmd *cobra.Command, args []string) error {
	ctx, cancel := newContext()
	defer cancel()
	res, err := gallery.NewClient(serverURL, token).CreateFromURL(ctx, collection, models.Record{
		URL:         args[0],
		Title:       itemTitle,
		Category:    itemCategory,
		Description: itemDescription,
	})
	if err != nil {
		return err
	}
	return printResult(cmd, res)
}

func runDelete(cmd *cobra.Command, args []string) error {
	ctx, cancel := newContext()
	defer cancel()
	res, err := gallery.NewClient(serverURL, token).Delete(ctx, collection, args[0])
	if err != nil {
		return err
	}
	return printResult(cmd, res)
}

func runMove(cmd *cobra.Command, args []string) error {
	from, err := strconv.Atoi(args[0])
	if err != nil {
		return fmt.Errorf("from: %w", err)
	}
	to, err := strconv.Atoi(args[1])
	if err != nil {
		return fmt.Errorf("to: %w", err)
	}

	ctx, cancel := newContext()
	defer cancel()
	// Refresh and commit share one client so the commit is pinned to the fetched ETag.
	state := gallery.NewState(gallery.NewClient(serverURL, token), collection)
	if err := state.Refresh(ctx); err != nil {
		return err
	}
	if err := state.Move(from, to); err != nil {
		return err
	}
	res, err := state.Commit(ctx)
	if err != nil {
		return err
	}
	return printResult(cmd, res)
}

func runSettings(cmd *cobra.Command, _ []string) error {
	ctx, cancel := newContext()
	defer cancel()
	client := gallery.NewClient(serverURL, token)
	s, err := client.Settings(ctx)
	if err != nil {
		return err
	}

	changed := false
	for name, value := range settingsFields {
		if !cmd.Flags().Changed(name) {
			continue
		}
		changed = true
		switch name {
		case "phone":
			s.Contact.Phone = *value
		case "email":
			s.Contact.Email = *value
		case "address":
			s.Contact.Address = *value
		case "instagram":
			s.Contact.Instagram = *value
		case "website":
			s.Contact.Website = *value
		}
	}
	if changed {
		if s, err = client.SaveSettings(ctx, s); err != nil {
			return err
		}
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(s)
}

func printRecords(cmd *cobra.Command, list []models.Record) {
	out := cmd.OutOrStdout()
	for i, r := range list {
		fmt.Fprintf(out, "%3d  %-15s  %-16s  %s\n", i, r.ID, r.Category, r.Label())
	}
}

func printResult(cmd *cobra.Command, res gallery.Result) error {
	if res.Item != nil {
		fmt.Fprintf(cmd.OutOrStdout(), "created %s\n", res.Item.ID)
	}
	if !res.Persisted {
		fmt.Fprintln(cmd.ErrOrStderr(), "warning: the server could not persist this change (read-only storage)")
	}
	printRecords(cmd, res.Items)
	return nil
}
