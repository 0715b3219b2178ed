package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
)

func main() {
	configPath := flag.String("config", "config.yaml", "Path to configuration file")
	dryRun := flag.Bool("dry-run", false, "Price the transaction, then cancel instead of paying")
	debug := flag.Bool("debug", false, "Enable detailed debug logging")
	country := flag.String("country", "", "Switch the cart country before buying (overrides config)")
	giftAccount := flag.Uint64("gift-account", 0, "Account id to receive a gifted purchase")
	giftEmail := flag.String("gift-email", "", "Email address to receive a gifted purchase")
	giftName := flag.String("gift-name", "", "Recipient name shown on the gift")
	giftMessage := flag.String("gift-message", "", "Message shown on the gift")
	flag.Parse()

	if err := InitLocale(); err != nil {
		log.Printf("Warning: Locale initialization failed, using default English: %v", err)
	}

	config, err := LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	if *dryRun {
		config.DryRun = true
	}
	if *debug {
		config.DebugMode = true
	}
	if *country != "" {
		config.CountryCode = *country
	}

	args := flag.Args()
	if len(args) == 0 {
		usage()
		os.Exit(2)
	}
	command := args[0]

	logger, err := NewLogger(config.DebugMode)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer logger.Sync()

	if config.DryRun {
		fmt.Println(T("dry_run_mode"))
	}

	ctx := context.Background()

	accounts := config.Accounts
	if len(accounts) == 0 {
		accounts = []string{"default"}
	}

	// Each account signs in through its own browser profile, one at a
	// time; the purchases themselves run in parallel afterwards.
	runners := make(map[string]*Runner, len(accounts))
	for _, name := range accounts {
		fmt.Println(T("account_login", name))

		accountConfig := *config
		accountConfig.BrowserProfilePath = filepath.Join(config.BrowserProfilePath, name)

		browser := NewBrowser(&accountConfig)
		if err := browser.Setup(); err != nil {
			log.Fatalf("Failed to set up browser for %s: %v", name, err)
		}
		if err := browser.WaitForLogin(); err != nil {
			browser.Close()
			log.Fatalf("Failed to wait for login for %s: %v", name, err)
		}

		cookies, err := browser.ExportCookies()
		browser.Close()
		if err != nil {
			log.Fatalf("Failed to export cookies for %s: %v", name, err)
		}

		session, err := NewSession(&accountConfig, logger)
		if err != nil {
			log.Fatalf("Failed to create session for %s: %v", name, err)
		}
		session.ImportCookies(cookies)

		if config.CountryCode != "" {
			if err := NewCart(session).SetCountry(ctx, config.CountryCode); err != nil {
				log.Fatalf("Failed to set country for %s: %v", name, err)
			}
		}

		runners[name] = NewRunner(session, config)
	}

	first := runners[accounts[0]]

	switch command {
	case "cart":
		items, err := first.cart.Fetch(ctx)
		if err != nil {
			log.Fatalf("Failed to fetch cart: %v", err)
		}
		printItems(items)

	case "clear":
		if err := first.cart.Clear(ctx); err != nil {
			log.Fatalf("Failed to clear cart: %v", err)
		}
		fmt.Println(T("cart_cleared"))

	case "add":
		items := parseItems(args[1:])
		for _, item := range items {
			inCart, err := first.cart.Add(ctx, item)
			if err != nil {
				log.Fatalf("Failed to add %s: %v", item, err)
			}
			printItems(inCart)
		}

	case "countries":
		countries, err := first.cart.AvailableCountries(ctx)
		if err != nil {
			log.Fatalf("Failed to list countries: %v", err)
		}
		for _, c := range countries {
			fmt.Println(T("country_entry", c.Code, c.Name))
		}

	case "setcountry":
		if len(args) < 2 {
			log.Fatal("Usage: setcountry <code>")
		}
		if err := first.cart.SetCountry(ctx, args[1]); err != nil {
			log.Fatalf("Failed to set country: %v", err)
		}
		fmt.Println(T("country_set", args[1]))

	case "giftcards":
		options, err := first.giftCards.Options(ctx)
		if err != nil {
			log.Fatalf("Failed to list gift cards: %v", err)
		}
		for _, o := range options {
			fmt.Println(T("gift_card_option", o.Amount, o.Price.StringFixed(2)))
		}

	case "buy":
		items := parseItems(args[1:])
		reportResults(RunForAccounts(ctx, accounts, func(ctx context.Context, name string) (string, error) {
			report, err := runners[name].RunItemPurchase(ctx, items, SelfPurchase())
			return describeReport(report), err
		}))

	case "gift":
		items := parseItems(args[1:])
		defaults := config.GiftDefaults
		name := orDefault(*giftName, defaults.Name)
		message := orDefault(*giftMessage, defaults.Message)

		// Transaction contexts are single-use, so each account gets a
		// fresh one.
		var newContext func() *TransactionContext
		switch {
		case *giftAccount != 0:
			newContext = func() *TransactionContext {
				return GiftToAccount(*giftAccount, name, message, defaults.Sentiment, defaults.Signature)
			}
		case *giftEmail != "":
			newContext = func() *TransactionContext {
				return GiftToEmail(*giftEmail, name, message, defaults.Sentiment, defaults.Signature)
			}
		default:
			log.Fatal("gift needs -gift-account or -gift-email")
		}

		reportResults(RunForAccounts(ctx, accounts, func(ctx context.Context, account string) (string, error) {
			report, err := runners[account].RunItemPurchase(ctx, items, newContext())
			return describeReport(report), err
		}))

	case "giftcard":
		if len(args) < 2 {
			log.Fatal("Usage: giftcard <amount>")
		}
		reportResults(RunForAccounts(ctx, accounts, func(ctx context.Context, account string) (string, error) {
			report, err := runners[account].RunGiftCardTopUp(ctx, config.WalletCurrency, args[1])
			return describeReport(report), err
		}))

	default:
		usage()
		os.Exit(2)
	}
}

func usage() {
	fmt.Println("Usage: storebot [flags] <command>")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  cart                      Show the current cart")
	fmt.Println("  add <item>...             Add items (sub/123 or bundle/456)")
	fmt.Println("  clear                     Abandon the current cart")
	fmt.Println("  buy <item>...             Buy items for your own account")
	fmt.Println("  gift <item>...            Gift items (-gift-account or -gift-email)")
	fmt.Println("  giftcards                 List gift card denominations")
	fmt.Println("  giftcard <amount>         Top up the wallet with a gift card")
	fmt.Println("  countries                 List available cart countries")
	fmt.Println("  setcountry <code>         Switch the cart country")
	fmt.Println()
	flag.PrintDefaults()
}

func parseItems(args []string) []ItemID {
	if len(args) == 0 {
		log.Fatal("No items given")
	}
	items := make([]ItemID, 0, len(args))
	for _, arg := range args {
		item, err := ParseItemID(arg)
		if err != nil {
			log.Fatalf("Invalid item %q: %v", arg, err)
		}
		items = append(items, item)
	}
	return items
}

func printItems(items []CartItem) {
	if len(items) == 0 {
		fmt.Println(T("cart_empty"))
		return
	}
	for _, item := range items {
		fmt.Println(T("cart_item", item.ID.String(), item.Name, item.Price.StringFixed(2)))
	}
}

func describeReport(report *PurchaseReport) string {
	if report == nil {
		return ""
	}
	if report.DryRun {
		return T("report_dry_run", report.TransactionID, report.Price.Total.StringFixed(2), report.Price.Currency)
	}
	return T("report_done", report.TransactionID, report.Status.String(), report.Price.Total.StringFixed(2), report.Price.Currency)
}

func reportResults(results []AccountResult) {
	failed := 0
	for _, result := range results {
		if result.Err != nil {
			failed++
			fmt.Println(T("account_failed", result.Name, result.Err))
			switch {
			case isSessionMissing(result.Err):
				fmt.Println(T("hint_empty_cart"))
			case isNetworkFailure(result.Err):
				fmt.Println(T("hint_network"))
			case isTransactionFailed(result.Err):
				fmt.Println(T("hint_transaction"))
			}
			continue
		}
		fmt.Println(T("account_done", result.Name, result.Message))
	}
	if failed > 0 {
		os.Exit(1)
	}
}

func orDefault(value, fallback string) string {
	if value != "" {
		return value
	}
	return fallback
}

func getUserDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "./storebot-data"
	}
	return filepath.Join(home, ".storebot")
}
