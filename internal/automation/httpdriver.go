package automation

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/redmi6provk-cell/tira-order-auto/internal/config"
	"github.com/redmi6provk-cell/tira-order-auto/internal/domain"
)

// HTTPDriver backs the request-capable subset of the Driver contract with a
// plain HTTP client: navigation, login verification and the account-status
// fetch. The interactive checkout steps need a browser-backed driver and
// fail with a classified step error here.
type HTTPDriver struct {
	site    config.SiteConfig
	client  *http.Client
	cookies []Cookie
	timeout time.Duration

	mu       sync.Mutex
	closed   bool
	lastBody []byte
}

// HTTPLauncher launches HTTPDrivers with a shared site configuration.
type HTTPLauncher struct {
	Site    config.SiteConfig
	Timeout time.Duration
}

// Launch builds a driver bound to the account's normalized credentials.
func (l *HTTPLauncher) Launch(ctx context.Context, acct *domain.Account, headless bool) (Driver, error) {
	cookies := NormalizeAccountCredentials(acct)
	if len(cookies) == 0 {
		return nil, domain.ErrAuth("no credentials stored for account", nil)
	}

	timeout := l.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	return &HTTPDriver{
		site:    l.Site,
		timeout: timeout,
		cookies: cookies,
		client: &http.Client{
			Timeout: timeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				// Redirects are an auth signal and must be visible to the
				// caller, not followed.
				return http.ErrUseLastResponse
			},
		},
	}, nil
}

func (d *HTTPDriver) get(ctx context.Context, url string) (*http.Response, error) {
	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", d.site.UserAgent)
	req.Header.Set("Cookie", CookieHeader(d.cookies))
	return d.client.Do(req)
}

// Navigate fetches the page and retains the body for VerifyLogin.
func (d *HTTPDriver) Navigate(ctx context.Context, url string) error {
	resp, err := d.get(ctx, url)
	if err != nil {
		d.markClosed()
		return domain.ErrStep("navigation failed: "+url, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return domain.ErrStep("reading page body", err)
	}

	d.mu.Lock()
	d.lastBody = body
	d.mu.Unlock()
	return nil
}

// VerifyLogin inspects the last fetched page for login prompts. A page
// offering a Login or Sign In affordance means the session cookies are not
// being honored.
func (d *HTTPDriver) VerifyLogin(ctx context.Context) (bool, error) {
	d.mu.Lock()
	body := d.lastBody
	d.mu.Unlock()
	if len(body) == 0 {
		return false, nil
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return false, domain.ErrStep("parsing page", err)
	}

	loggedOut := false
	doc.Find("a, button").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		text := strings.ToLower(strings.TrimSpace(sel.Text()))
		if text == "login" || text == "sign in" {
			loggedOut = true
			return false
		}
		return true
	})
	return !loggedOut, nil
}

// FetchAccountStatus performs the account-status request.
func (d *HTTPDriver) FetchAccountStatus(ctx context.Context) (*FetchResult, error) {
	resp, err := d.get(ctx, d.site.AccountAPI)
	if err != nil {
		d.markClosed()
		return nil, domain.ErrStep("account status request failed", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, domain.ErrStep("reading account status response", err)
	}

	return &FetchResult{
		StatusCode: resp.StatusCode,
		Body:       body,
		Redirected: resp.StatusCode >= 300 && resp.StatusCode < 400,
	}, nil
}

func (d *HTTPDriver) ClearAddresses(ctx context.Context) (int, error) {
	return 0, errBrowserOnly("clear addresses")
}

func (d *HTTPDriver) ClearCart(ctx context.Context) (int, error) {
	return 0, errBrowserOnly("clear cart")
}

func (d *HTTPDriver) AddProduct(ctx context.Context, url string, quantity int) error {
	return errBrowserOnly("add product")
}

func (d *HTTPDriver) ApplyBestCoupon(ctx context.Context) (bool, error) {
	return false, errBrowserOnly("apply coupon")
}

func (d *HTTPDriver) CartTotal(ctx context.Context) (float64, error) {
	return 0, errBrowserOnly("cart total")
}

func (d *HTTPDriver) AddAddress(ctx context.Context, addr domain.Address) error {
	return errBrowserOnly("add address")
}

func (d *HTTPDriver) SelectPayment(ctx context.Context, method domain.PaymentMethod, card *domain.Card) error {
	return errBrowserOnly("select payment")
}

func (d *HTTPDriver) SubmitOrder(ctx context.Context) (string, error) {
	return "", errBrowserOnly("submit order")
}

// Health reports whether the HTTP channel is still usable.
func (d *HTTPDriver) Health() SessionHealth {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return HealthClosed
	}
	return HealthOK
}

// Close releases the driver.
func (d *HTTPDriver) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closed = true
	d.client.CloseIdleConnections()
	return nil
}

func (d *HTTPDriver) markClosed() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closed = true
}

func errBrowserOnly(step string) error {
	return domain.ErrStep(step+" requires a browser-backed driver", nil)
}
