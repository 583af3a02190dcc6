package ui

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"golang.org/x/sync/errgroup"

	"github.com/five82/shopaura/internal/api"
	"github.com/five82/shopaura/internal/nav"
)

// productDetail is the product page: the product and its reviews.
type productDetail struct {
	id      string
	product api.Product
	reviews []api.Review
	loading bool
}

// openProduct records the product route and shows its page.
func (m Model) openProduct(id string) (tea.Model, tea.Cmd) {
	if m.svc.History != nil {
		m.svc.History.Navigate(nav.To(nav.ProductDetail(id)))
	}
	return m.switchView(ViewProductDetail)
}

// loadProductDetailCmd fetches the product and its reviews together. A
// failed review listing leaves the page without reviews.
func (m *Model) loadProductDetailCmd(id string) tea.Cmd {
	if m.detail.id != id {
		m.detail = productDetail{id: id}
	}
	m.detailError = nil
	if id == "" || m.svc.Catalog == nil {
		return nil
	}
	m.detail.loading = true
	catalog := m.svc.Catalog
	authed := m.authenticated()
	parent := m.ctx
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(parent, RequestTimeout)
		defer cancel()

		var (
			product api.Product
			reviews []api.Review
		)
		var g errgroup.Group
		g.Go(func() error {
			var err error
			product, err = catalog.GetProduct(ctx, id, authed)
			return err
		})
		g.Go(func() error {
			var err error
			reviews, err = catalog.ListReviews(ctx, id)
			if err != nil {
				slog.Debug("load reviews failed", "product", id, "error", err)
			}
			return nil
		})
		err := g.Wait()
		return productDetailMsg{id: id, product: product, reviews: reviews, err: err}
	}
}

// handleProductDetailKey processes keyboard input for the product page.
func (m Model) handleProductDetailKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Back):
		return m.switchView(ViewProducts)
	case key.Matches(msg, m.keys.Reload):
		return m, m.loadProductDetailCmd(m.detail.id)
	}

	p := m.detail.product
	if p.ID == "" {
		return m, nil
	}
	switch {
	case key.Matches(msg, m.keys.AddToCart):
		if !m.authenticated() {
			return m.switchView(ViewLogin)
		}
		cartMgr := m.svc.Cart
		return m, m.runOp("add to cart", nil, func(ctx context.Context) error {
			return cartMgr.AddToCart(ctx, p, 1)
		})
	case key.Matches(msg, m.keys.ToggleWishlist):
		if !m.authenticated() {
			return m.switchView(ViewLogin)
		}
		wl := m.svc.Wishlist
		return m, m.runOp("toggle wishlist", nil, func(ctx context.Context) error {
			_, err := wl.Toggle(ctx, p)
			return err
		})
	}
	return m, nil
}

// renderProductDetail renders the product page.
func (m Model) renderProductDetail() string {
	styles := m.theme.Styles()
	if m.detailError != nil {
		return styles.DangerText.Render("Could not load product: " + api.Message(m.detailError, "request failed"))
	}
	p := m.detail.product
	if p.ID == "" {
		if m.detail.loading {
			return m.emptyState("Loading product...")
		}
		return m.emptyState("No product selected")
	}

	width := m.innerWidth()
	var b strings.Builder
	title := p.Name
	if m.authenticated() && m.svc.Wishlist.IsInWishlist(p.ID) {
		title = "♥ " + title
	}
	b.WriteString(styles.Text.Bold(true).Render(title))
	b.WriteString("\n")

	price := api.FormatPrice(m.currency, productPrice(p))
	if p.FinalPrice > 0 && p.FinalPrice < p.Price {
		price += "  " + styles.FaintText.Strikethrough(true).Render(api.FormatPrice(m.currency, p.Price))
	}
	b.WriteString(styles.AccentText.Render(price))
	b.WriteString("  ")
	switch {
	case p.Stock <= 0:
		b.WriteString(styles.DangerText.Render("Out of stock"))
	case p.Stock < 5:
		b.WriteString(styles.WarningText.Render(fmt.Sprintf("Only %d left", p.Stock)))
	default:
		b.WriteString(styles.SuccessText.Render("In stock"))
	}
	if q := m.svc.Cart.ItemQuantity(p.ID); m.authenticated() && q > 0 {
		b.WriteString(styles.MutedText.Render(fmt.Sprintf("  %d in cart", q)))
	}
	b.WriteString("\n")
	b.WriteString(styles.MutedText.Render(fmt.Sprintf("%s  %.1f (%d reviews)", stars(p.AverageRating), p.AverageRating, p.NumReviews)))
	b.WriteString("\n\n")

	if desc := strings.TrimSpace(p.Description); desc != "" {
		b.WriteString(lipgloss.NewStyle().Width(width).Render(styles.Text.Render(desc)))
		b.WriteString("\n\n")
	}

	b.WriteString(styles.AccentText.Bold(true).Render("Reviews"))
	b.WriteString("\n")
	if len(m.detail.reviews) == 0 {
		b.WriteString(m.emptyState("No reviews yet"))
		return b.String()
	}
	for i, r := range m.detail.reviews {
		if i == ReviewLimit {
			b.WriteString(styles.FaintText.Render(fmt.Sprintf("and %d more", len(m.detail.reviews)-ReviewLimit)))
			break
		}
		who := r.User.Name
		if who == "" {
			who = "Anonymous"
		}
		b.WriteString(styles.WarningText.Render(stars(r.Rating)))
		b.WriteString(" ")
		b.WriteString(styles.Text.Bold(true).Render(truncate(who, 24)))
		if age := humanizeAge(r.Time(), m.now); age != "" {
			b.WriteString(styles.FaintText.Render("  " + age))
		}
		b.WriteString("\n")
		if c := strings.TrimSpace(r.Comment); c != "" {
			b.WriteString(styles.Text.Render(truncate(c, width)))
			b.WriteString("\n")
		}
	}
	return b.String()
}
