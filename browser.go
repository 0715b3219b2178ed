package main

import (
	"bufio"
	"fmt"
	"net/http"
	"os"
	"runtime"
	"strings"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"
)

// Browser drives an interactive login through a real Chrome window
// and hands the resulting cookies to a Session. The storefront's
// login challenges are solved by the user, not automated.
type Browser struct {
	config   *Config
	browser  *rod.Browser
	page     *rod.Page
	launcher *launcher.Launcher
	stopChan chan bool
}

func NewBrowser(config *Config) *Browser {
	return &Browser{
		config:   config,
		stopChan: make(chan bool, 1),
	}
}

func (b *Browser) Close() {
	select {
	case b.stopChan <- true:
	default:
	}

	fmt.Println(T("cleaning_up"))

	if b.page != nil {
		b.page.Close()
	}

	if b.browser != nil {
		b.browser.Close()
	}

	if b.launcher != nil {
		b.launcher.Cleanup()
	}

	fmt.Println(T("browser_destroyed"))
}

func (b *Browser) isBrowserAlive() bool {
	if b.browser == nil {
		return false
	}

	if _, err := b.browser.Version(); err != nil {
		return false
	}

	if b.page != nil {
		if _, err := b.page.Info(); err != nil {
			return false
		}
	}

	return true
}

func (b *Browser) checkBrowserOrExit() {
	if !b.isBrowserAlive() {
		fmt.Println(T("browser_closed_by_user"))
		fmt.Println(T("shutting_down"))
		os.Exit(0)
	}
}

func (b *Browser) watchBrowser() {
	ticker := time.NewTicker(2 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-b.stopChan:
			return
		case <-ticker.C:
			b.checkBrowserOrExit()
		}
	}
}

func (b *Browser) Setup() error {
	fmt.Println(T("browser_launching"))

	// Disable leakless mode on Windows to prevent deadlock
	// See: https://github.com/go-rod/rod/issues/853
	useLeakless := runtime.GOOS != "windows"

	// Prefer system Chrome over a downloaded Chromium
	chromePath, chromeExists := launcher.LookPath()

	b.launcher = launcher.New().
		Leakless(useLeakless).
		Headless(b.config.Headless)

	if b.config.BrowserProfilePath != "" {
		b.launcher = b.launcher.UserDataDir(b.config.BrowserProfilePath)
	}

	if chromeExists {
		b.launcher = b.launcher.Bin(chromePath)
		fmt.Println(T("browser_using_system_chrome"))
	} else {
		fmt.Println(T("browser_chrome_not_found"))
	}

	url, err := b.launcher.Launch()
	if err != nil {
		errMsg := err.Error()
		if strings.Contains(errMsg, "Opening in existing browser session") ||
			strings.Contains(errMsg, "ProcessSingleton") ||
			strings.Contains(errMsg, "SingletonLock") {
			fmt.Println(T("error_chrome_already_running_header"))
			fmt.Println(T("error_chrome_close_all"))
			return fmt.Errorf(T("error_chrome_already_running"))
		}
		return fmt.Errorf("failed to launch browser: %w", err)
	}

	b.browser = rod.New().ControlURL(url).MustConnect()

	go b.watchBrowser()

	fmt.Println(T("browser_launched"))
	return nil
}

// WaitForLogin opens the store in the browser and blocks until the
// user confirms they are signed in.
func (b *Browser) WaitForLogin() error {
	fmt.Println(T("opening_for_login"))

	var err error
	b.page, err = stealth.Page(b.browser)
	if err != nil {
		return fmt.Errorf("failed to create stealth page: %w", err)
	}

	if err := b.page.Navigate(b.config.StoreURL); err != nil {
		return fmt.Errorf("failed to navigate: %w", err)
	}

	err = b.page.SetUserAgent(&proto.NetworkSetUserAgentOverride{
		UserAgent: b.config.UserAgent,
	})
	if err != nil {
		return fmt.Errorf("failed to set user agent: %w", err)
	}

	if err := b.page.WaitLoad(); err != nil {
		return fmt.Errorf("page failed to load: %w", err)
	}

	fmt.Println()
	fmt.Println(T("login_required_header"))
	fmt.Println(T("login_instructions"))
	fmt.Print(T("login_prompt"))

	reader := bufio.NewReader(os.Stdin)
	for {
		input, err := reader.ReadByte()
		if err != nil {
			return fmt.Errorf("failed to read input: %w", err)
		}

		if input == '\n' || input == '\r' {
			fmt.Println()
			fmt.Println(T("user_confirmed_ready"))
			return nil
		}

		if input == 27 {
			fmt.Println()
			fmt.Println(T("user_requested_exit"))
			return fmt.Errorf("user canceled operation")
		}
	}
}

// ExportCookies reads the signed-in browser's cookies for hand-off to
// a Session.
func (b *Browser) ExportCookies() ([]*http.Cookie, error) {
	rodCookies, err := b.browser.GetCookies()
	if err != nil {
		return nil, fmt.Errorf("failed to read browser cookies: %w", err)
	}

	cookies := make([]*http.Cookie, 0, len(rodCookies))
	for _, c := range rodCookies {
		cookies = append(cookies, &http.Cookie{
			Name:  c.Name,
			Value: c.Value,
			Path:  c.Path,
		})
	}
	return cookies, nil
}
