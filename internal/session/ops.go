package session

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
)

// Navigate loads a URL and waits for the document to settle. The outer
// guard is wider than the page-load timeout so the in-page timeout
// fires first; the guard only trips when the transport itself wedges.
func (h *Handle) Navigate(url string) error {
	guard := h.cfg.PageLoadTimeout + h.cfg.InterruptGrace
	return h.run("navigate", guard, func(page *rod.Page) error {
		p := page.Timeout(h.cfg.PageLoadTimeout)
		if err := p.Navigate(url); err != nil {
			return fmt.Errorf("navigate %s: %w", url, err)
		}
		if err := p.WaitLoad(); err != nil {
			return fmt.Errorf("wait load %s: %w", url, err)
		}
		// A short settle window for late-arriving script content.
		// Instability here is tolerated; the page is usable anyway.
		_ = p.WaitStable(300 * time.Millisecond)
		return nil
	})
}

// ElementCount returns how many elements match a CSS selector.
func (h *Handle) ElementCount(selector string) (int, error) {
	var count int
	err := h.run("element_count", h.cfg.OpTimeout, func(page *rod.Page) error {
		els, err := page.Timeout(h.cfg.OpTimeout).Elements(selector)
		if err != nil {
			return fmt.Errorf("query %q: %w", selector, err)
		}
		count = len(els)
		return nil
	})
	return count, err
}

// Attributes collects the named attribute from every element matching
// the selector, skipping elements where the attribute is absent.
func (h *Handle) Attributes(selector, attr string) ([]string, error) {
	var values []string
	err := h.run("attributes", h.cfg.OpTimeout, func(page *rod.Page) error {
		els, err := page.Timeout(h.cfg.OpTimeout).Elements(selector)
		if err != nil {
			return fmt.Errorf("query %q: %w", selector, err)
		}
		values = values[:0]
		for _, el := range els {
			v, err := el.Attribute(attr)
			if err != nil || v == nil {
				continue
			}
			values = append(values, *v)
		}
		return nil
	})
	return values, err
}

// HTML returns the full serialized document of the current page.
func (h *Handle) HTML() (string, error) {
	var html string
	err := h.run("html", h.cfg.OpTimeout, func(page *rod.Page) error {
		content, err := page.Timeout(h.cfg.OpTimeout).HTML()
		if err != nil {
			return fmt.Errorf("get html: %w", err)
		}
		html = content
		return nil
	})
	return html, err
}

// ClickMatching clicks the first element matching the selector whose
// visible text contains the given substring (case-insensitive).
func (h *Handle) ClickMatching(selector, text string) error {
	needle := strings.ToLower(text)
	return h.run("click_matching", h.cfg.OpTimeout, func(page *rod.Page) error {
		p := page.Timeout(h.cfg.OpTimeout)
		els, err := p.Elements(selector)
		if err != nil {
			return fmt.Errorf("query %q: %w", selector, err)
		}
		for _, el := range els {
			label, err := el.Text()
			if err != nil {
				continue
			}
			if strings.Contains(strings.ToLower(label), needle) {
				if err := el.Click(proto.InputMouseButtonLeft, 1); err != nil {
					return fmt.Errorf("click %q: %w", text, err)
				}
				_ = p.WaitStable(300 * time.Millisecond)
				return nil
			}
		}
		return fmt.Errorf("no element matching selector %q with text %q", selector, text)
	})
}
