package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net/url"
	"os"
	"strconv"
	"strings"

	"github.com/lithammer/shortuuid/v4"
	"github.com/spf13/cobra"

	"github.com/kalambet/shopper/internal/api"
	"github.com/kalambet/shopper/internal/catalog"
	"github.com/kalambet/shopper/internal/config"
	"github.com/kalambet/shopper/internal/dialogue"
	"github.com/kalambet/shopper/internal/storage"
)

// --- seed ---

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Generate a synthetic product catalog",
	Long: `Generate a synthetic product catalog into local storage.

Examples:
  shopper seed
  shopper seed --count 500 --reset`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		setupLogging(cfg.Log.Level)

		count, seed, reset, err := seedOptions(cmd, cfg.Catalog)
		if err != nil {
			return err
		}

		store, err := storage.Open(cfg.Storage.DataDir)
		if err != nil {
			return fmt.Errorf("opening storage: %w", err)
		}
		defer store.Close()

		n, err := seedCatalog(cmd.Context(), store, count, uint64(seed), reset)
		if err != nil {
			return err
		}
		printSuccess("Catalog has %d products", n)
		return nil
	},
}

func init() {
	seedCmd.Flags().Int("count", 300, "number of products to generate")
	seedCmd.Flags().Int("seed", 42, "random seed for the generator")
	seedCmd.Flags().Bool("reset", false, "delete existing products first")
}

// seedOptions reads the seed flags, falling back to the configured catalog
// settings for flags that were not given.
func seedOptions(cmd *cobra.Command, cfg config.CatalogConfig) (count, seed int, reset bool, err error) {
	count, seed = cfg.SeedCount, cfg.Seed
	if cmd.Flags().Changed("count") {
		if count, err = cmd.Flags().GetInt("count"); err != nil {
			return 0, 0, false, err
		}
	}
	if cmd.Flags().Changed("seed") {
		if seed, err = cmd.Flags().GetInt("seed"); err != nil {
			return 0, 0, false, err
		}
	}
	reset, err = cmd.Flags().GetBool("reset")
	return count, seed, reset, err
}

type seedStore interface {
	catalogStore
	DeleteProducts(ctx context.Context) error
}

// seedCatalog writes count generated products and returns the catalog size.
// Existing products with the same ids are replaced.
func seedCatalog(ctx context.Context, store seedStore, count int, seed uint64, reset bool) (int, error) {
	if count < 0 {
		return 0, fmt.Errorf("--count must not be negative")
	}
	if reset {
		printStep("Deleting existing products")
		if err := store.DeleteProducts(ctx); err != nil {
			return 0, fmt.Errorf("deleting products: %w", err)
		}
	}
	if count > 0 {
		printStep("Generating %d products (seed %d)", count, seed)
		if err := store.SaveProducts(ctx, catalog.Generate(count, seed)); err != nil {
			return 0, fmt.Errorf("saving products: %w", err)
		}
	}
	return store.CountProducts(ctx)
}

// --- search ---

var searchCmd = &cobra.Command{
	Use:   "search [query...]",
	Short: "Search the catalog directly",
	Long: `Search the local catalog without going through the assistant.

Examples:
  shopper search red dress
  shopper search --category Shoes --tags women,leather`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		category, _ := cmd.Flags().GetString("category")
		tagsStr, _ := cmd.Flags().GetString("tags")

		req := catalog.SearchRequest{Query: strings.Join(args, " "), Category: category}
		if tagsStr != "" {
			req.Tags = catalog.NormalizeTags(strings.Split(tagsStr, ","))
		}

		store, err := storage.Open(cfg.Storage.DataDir)
		if err != nil {
			return fmt.Errorf("opening storage: %w", err)
		}
		defer store.Close()

		products, err := catalog.NewSearcher(store).Search(cmd.Context(), req)
		if err != nil {
			return err
		}
		printProducts(os.Stdout, products)
		return nil
	},
}

func init() {
	searchCmd.Flags().String("category", "", "category filter (substring, case-insensitive)")
	searchCmd.Flags().String("tags", "", "comma-separated tags, any must match")
}

// --- chat ---

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Talk to the shopping assistant of a running server",
	Long: `Start an interactive conversation with the assistant.

Commands inside the session:
  /cart    show the cart
  /reset   clear the cart and the conversation
  /quit    leave`,
	RunE: func(cmd *cobra.Command, args []string) error {
		sessionID, _ := cmd.Flags().GetString("session")
		if sessionID == "" {
			sessionID = shortuuid.New()
		}
		client, err := newAPIClient(sessionID)
		if err != nil {
			return err
		}
		printStep("Session %s", sessionID)
		return runChat(cmd.Context(), client, os.Stdin, os.Stdout)
	},
}

func init() {
	chatCmd.Flags().String("session", "", "session id to resume (default: a new session)")
}

func runChat(ctx context.Context, client *apiClient, in io.Reader, out io.Writer) error {
	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, colorize(colorCyan, "you> "))
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())

		switch line {
		case "":
			continue
		case "/quit", "/exit":
			return nil
		case "/cart":
			if err := showCart(ctx, client, out); err != nil {
				printError("%v", err)
			}
			continue
		case "/reset":
			if err := resetSession(ctx, client); err != nil {
				printError("%v", err)
			} else {
				fmt.Fprintln(out, "(conversation reset)")
			}
			continue
		}

		reply, err := sendChat(ctx, client, line)
		if err != nil {
			printError("%v", err)
			continue
		}
		printReply(out, reply)
	}
}

func sendChat(ctx context.Context, client *apiClient, message string) (dialogue.Reply, error) {
	resp, err := client.post(ctx, "/chat", map[string]string{"message": message, "session_id": client.sessionID})
	if err != nil {
		return dialogue.Reply{}, err
	}
	var reply dialogue.Reply
	if err := decodeJSON(resp, &reply); err != nil {
		return dialogue.Reply{}, err
	}
	return reply, nil
}

func printReply(w io.Writer, reply dialogue.Reply) {
	label := colorize(colorGreen, "shopper> ")
	if len(reply.Products) > 0 {
		fmt.Fprintf(w, "%sI found %d item(s):\n", label, len(reply.Products))
		printProducts(w, reply.Products)
		return
	}
	fmt.Fprintf(w, "%s%s\n", label, reply.Content)
}

func resetSession(ctx context.Context, client *apiClient) error {
	resp, err := client.post(ctx, "/reset", map[string]string{"session_id": client.sessionID})
	if err != nil {
		return err
	}
	var result map[string]string
	return decodeJSON(resp, &result)
}

// --- cart ---

var cartCmd = &cobra.Command{
	Use:   "cart",
	Short: "Show or change a session's cart on a running server",
}

var cartShowCmd = &cobra.Command{
	Use:   "show",
	Short: "List the items in the cart",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := cartClient(cmd)
		if err != nil {
			return err
		}
		return showCart(cmd.Context(), client, os.Stdout)
	},
}

var cartAddCmd = &cobra.Command{
	Use:   "add <product-id>",
	Short: "Add a product to the cart",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := cartClient(cmd)
		if err != nil {
			return err
		}
		msg, err := addToCart(cmd.Context(), client, args[0])
		if err != nil {
			return err
		}
		printSuccess("%s", msg)
		return nil
	},
}

var cartRemoveCmd = &cobra.Command{
	Use:   "remove <product-id>",
	Short: "Remove a product from the cart",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := cartClient(cmd)
		if err != nil {
			return err
		}
		msg, err := removeFromCart(cmd.Context(), client, args[0])
		if err != nil {
			return err
		}
		printSuccess("%s", msg)
		return nil
	},
}

func init() {
	cartCmd.PersistentFlags().String("session", api.DefaultSessionID, "session id")
	cartCmd.AddCommand(cartShowCmd)
	cartCmd.AddCommand(cartAddCmd)
	cartCmd.AddCommand(cartRemoveCmd)
}

func cartClient(cmd *cobra.Command) (*apiClient, error) {
	sessionID, _ := cmd.Flags().GetString("session")
	return newAPIClient(sessionID)
}

type cartResult struct {
	Status    string `json:"status"`
	CartCount int    `json:"cart_count"`
	Message   string `json:"message"`
}

func showCart(ctx context.Context, client *apiClient, w io.Writer) error {
	resp, err := client.get(ctx, "/cart")
	if err != nil {
		return err
	}
	var items []catalog.Product
	if err := decodeJSON(resp, &items); err != nil {
		return err
	}

	printProducts(w, items)
	if len(items) > 0 {
		var total float64
		for _, p := range items {
			total += p.Price
		}
		fmt.Fprintf(w, "  %s %.2f\n", colorize(colorBold, "Total:"), total)
	}
	return nil
}

func addToCart(ctx context.Context, client *apiClient, productID string) (string, error) {
	resp, err := client.post(ctx, "/cart/items", map[string]string{"product_id": productID})
	if err != nil {
		return "", err
	}
	var result cartResult
	if err := decodeJSON(resp, &result); err != nil {
		return "", err
	}
	return fmt.Sprintf("%s (%d in cart)", result.Message, result.CartCount), nil
}

func removeFromCart(ctx context.Context, client *apiClient, productID string) (string, error) {
	resp, err := client.delete(ctx, "/cart/items/"+url.PathEscape(productID))
	if err != nil {
		return "", err
	}
	var result cartResult
	if err := decodeJSON(resp, &result); err != nil {
		return "", err
	}
	return fmt.Sprintf("%s (%d in cart)", result.Message, result.CartCount), nil
}

// --- orders ---

var ordersCmd = &cobra.Command{
	Use:   "orders [order-id]",
	Short: "List recent orders, or show one order, from a running server",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, err := cmd.Flags().GetInt("limit")
		if err != nil {
			return err
		}
		client, err := newAPIClient("")
		if err != nil {
			return err
		}
		if len(args) == 1 {
			return showOrder(cmd.Context(), client, args[0], os.Stdout)
		}
		return listOrders(cmd.Context(), client, limit, os.Stdout)
	},
}

func init() {
	ordersCmd.Flags().Int("limit", 10, "maximum number of orders")
}

func listOrders(ctx context.Context, client *apiClient, limit int, w io.Writer) error {
	resp, err := client.get(ctx, "/orders?limit="+strconv.Itoa(limit))
	if err != nil {
		return err
	}
	var orders []storage.Order
	if err := decodeJSON(resp, &orders); err != nil {
		return err
	}
	if len(orders) == 0 {
		fmt.Fprintln(w, "  (no orders)")
		return nil
	}
	for _, o := range orders {
		fmt.Fprintf(w, "  %s  %s  %8.2f  %d item(s)  session %s  %s\n",
			colorize(colorBold, o.Number), o.CreatedAt.Format("2006-01-02 15:04"), o.Total, len(o.Items), o.SessionID, o.ID)
	}
	return nil
}

// showOrder prints one order with its items. id is the ledger id shown by
// listOrders, not the ORD- number.
func showOrder(ctx context.Context, client *apiClient, id string, w io.Writer) error {
	resp, err := client.get(ctx, "/orders/"+url.PathEscape(id))
	if err != nil {
		return err
	}
	var o storage.Order
	if err := decodeJSON(resp, &o); err != nil {
		return err
	}
	fmt.Fprintf(w, "  %s  %s  session %s\n", colorize(colorBold, o.Number), o.CreatedAt.Format("2006-01-02 15:04"), o.SessionID)
	for _, it := range o.Items {
		fmt.Fprintf(w, "    %-10s %-40s %8.2f\n", it.ProductID, it.Name, it.Price)
	}
	fmt.Fprintf(w, "  %s %.2f\n", colorize(colorBold, "Total:"), o.Total)
	return nil
}

// --- config ---

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or update configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}

		keys := config.ShowAll(cfg)
		for _, k := range keys {
			fmt.Printf("  %s = %s  (%s)\n", colorize(colorBold, k.Key), k.Value, k.EnvVar)
		}
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value",
	Long:  "Set a configuration value. Valid keys: " + strings.Join(config.ValidKeys(), ", "),
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, value := args[0], args[1]

		if err := config.SetKey(key, value); err != nil {
			return err
		}

		printSuccess("Set %s = %s", key, value)
		return nil
	},
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
}
