package services

import (
	"encoding/json"
	"fmt"
	"log"
	"regexp"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"formpilot/models"
)

// SignalExtractor walks a rendered page and produces one ElementSignals per
// visible interactive element. Hidden and zero-size elements never make it
// into the sequence: filling an invisible field is never meaningful and is a
// common honeypot trap.
type SignalExtractor struct{}

func NewSignalExtractor() *SignalExtractor {
	return &SignalExtractor{}
}

// rawElement mirrors the object built by the extraction script for one
// candidate element, before label resolution.
type rawElement struct {
	Selector        string             `json:"selector"`
	Tag             string             `json:"tag"`
	TypeAttr        string             `json:"typeAttr"`
	LabelFor        string             `json:"labelFor"`
	AriaLabel       string             `json:"ariaLabel"`
	SiblingText     string             `json:"siblingText"`
	Placeholder     string             `json:"placeholder"`
	Name            string             `json:"name"`
	ID              string             `json:"id"`
	SurroundingText string             `json:"surroundingText"`
	Required        bool               `json:"required"`
	Visible         bool               `json:"visible"`
	Box             models.BoundingBox `json:"box"`
	Options         []string           `json:"options"`
}

// extractScript collects the observable signals for every interactive
// element in DOM order. Visibility is computed here because computed styles
// are only reachable inside the page.
const extractScript = `() => {
	const results = [];
	const seen = new Set();
	const selectorFor = (el) => {
		if (el.id) return '#' + CSS.escape(el.id);
		const path = [];
		let node = el;
		while (node && node.nodeType === Node.ELEMENT_NODE) {
			let sel = node.nodeName.toLowerCase();
			if (node.id) {
				path.unshift(sel + '#' + CSS.escape(node.id));
				break;
			}
			let sib = node, nth = 1;
			while ((sib = sib.previousElementSibling)) {
				if (sib.nodeName === node.nodeName) nth++;
			}
			if (nth > 1) sel += ':nth-of-type(' + nth + ')';
			path.unshift(sel);
			node = node.parentElement;
		}
		return path.join(' > ');
	};
	const isVisible = (el) => {
		const rect = el.getBoundingClientRect();
		if (rect.width <= 1 || rect.height <= 1) return false;
		let node = el;
		while (node && node.nodeType === Node.ELEMENT_NODE) {
			const style = window.getComputedStyle(node);
			if (style.display === 'none' || style.visibility === 'hidden' || style.opacity === '0') {
				return false;
			}
			node = node.parentElement;
		}
		return true;
	};
	const siblingTextFor = (el) => {
		let node = el.previousSibling;
		while (node) {
			if (node.nodeType === Node.TEXT_NODE && node.textContent.trim()) {
				return node.textContent.trim();
			}
			if (node.nodeType === Node.ELEMENT_NODE) {
				if (node.matches('input, select, textarea, button')) break;
				const text = node.textContent.trim();
				if (text) return text;
			}
			node = node.previousSibling;
		}
		return '';
	};
	const surroundingFor = (el) => {
		const row = el.closest('label, li, tr, fieldset, div') || el.parentElement;
		if (!row) return '';
		return row.textContent.trim().replace(/\s+/g, ' ').slice(0, 160);
	};
	const elements = document.querySelectorAll(
		'input:not([type=hidden]):not([type=submit]):not([type=button]):not([type=reset]), select, textarea'
	);
	for (const el of elements) {
		const selector = selectorFor(el);
		if (seen.has(selector)) continue;
		seen.add(selector);
		const rect = el.getBoundingClientRect();
		let labelFor = '';
		if (el.id) {
			const labelEl = document.querySelector('label[for="' + CSS.escape(el.id) + '"]');
			if (labelEl) labelFor = labelEl.textContent.trim().replace(/\s+/g, ' ');
		}
		if (!labelFor) {
			const wrapping = el.closest('label');
			if (wrapping) labelFor = wrapping.textContent.trim().replace(/\s+/g, ' ');
		}
		let options = [];
		if (el.tagName === 'SELECT') {
			options = Array.from(el.options).map(o => o.textContent.trim()).filter(t => t);
		}
		results.push({
			selector: selector,
			tag: el.tagName.toLowerCase(),
			typeAttr: (el.getAttribute('type') || '').toLowerCase(),
			labelFor: labelFor,
			ariaLabel: el.getAttribute('aria-label') || '',
			siblingText: siblingTextFor(el),
			placeholder: el.getAttribute('placeholder') || '',
			name: el.getAttribute('name') || '',
			id: el.id || '',
			surroundingText: surroundingFor(el),
			required: el.required || el.getAttribute('aria-required') === 'true',
			visible: isVisible(el),
			box: { x: rect.x, y: rect.y, width: rect.width, height: rect.height },
			options: options
		});
	}
	return JSON.stringify(results);
}`

// Extract returns signals for every visible interactive element in DOM
// encounter order. An empty result is not an error: it means no form is
// present on the page.
func (e *SignalExtractor) Extract(session *PageSession) ([]models.ElementSignals, error) {
	payload, err := session.EvaluateJSON(extractScript)
	if err != nil {
		return nil, fmt.Errorf("signal extraction failed: %w", err)
	}
	return e.parse(payload)
}

func (e *SignalExtractor) parse(payload string) ([]models.ElementSignals, error) {
	var raw []rawElement
	if err := json.Unmarshal([]byte(payload), &raw); err != nil {
		return nil, fmt.Errorf("could not decode extraction payload: %w", err)
	}

	signals := make([]models.ElementSignals, 0, len(raw))
	for _, r := range raw {
		if !r.Visible {
			log.Printf("Skipping invisible element %s (name=%q)", r.Selector, r.Name)
			continue
		}
		kind, ok := inputKindOf(r.Tag, r.TypeAttr)
		if !ok {
			continue
		}
		label := resolveLabel(r)
		signals = append(signals, models.ElementSignals{
			Selector:        r.Selector,
			LabelText:       label,
			Placeholder:     r.Placeholder,
			NameAttr:        r.Name,
			IDAttr:          r.ID,
			InputKind:       kind,
			TypeAttr:        r.TypeAttr,
			SurroundingText: r.SurroundingText,
			Required:        r.Required || strings.Contains(label, "*"),
			Visible:         true,
			Box:             r.Box,
			Options:         r.Options,
		})
	}
	return signals, nil
}

// inputKindOf maps a tag plus type attribute to the coarse interaction kind.
// Radios ride along with checkboxes: both are toggled, not typed into.
func inputKindOf(tag, typeAttr string) (models.InputKind, bool) {
	switch tag {
	case "textarea":
		return models.InputKindTextarea, true
	case "select":
		return models.InputKindSelect, true
	case "input":
		switch typeAttr {
		case "file":
			return models.InputKindFile, true
		case "checkbox", "radio":
			return models.InputKindCheckbox, true
		case "hidden", "submit", "button", "reset", "image":
			return "", false
		default:
			return models.InputKindText, true
		}
	}
	return "", false
}

// resolveLabel picks the label in decreasing order of reliability:
// label[for] association, aria-label, nearest preceding sibling text,
// placeholder, then the tokenized name/id attribute.
func resolveLabel(r rawElement) string {
	for _, candidate := range []string{r.LabelFor, r.AriaLabel, r.SiblingText, r.Placeholder} {
		if s := strings.TrimSpace(candidate); s != "" {
			return s
		}
	}
	if r.Name != "" {
		return tokenizeAttr(r.Name)
	}
	return tokenizeAttr(r.ID)
}

var (
	camelBoundary = regexp.MustCompile(`([a-z0-9])([A-Z])`)
	separators    = regexp.MustCompile(`[_\-.\[\]]+`)
	titleCaser    = cases.Title(language.English)
)

// tokenizeAttr turns an attribute like "first_name" or "firstName" into a
// readable weak label ("First Name").
func tokenizeAttr(attr string) string {
	if attr == "" {
		return ""
	}
	s := camelBoundary.ReplaceAllString(attr, "$1 $2")
	s = separators.ReplaceAllString(s, " ")
	s = strings.Join(strings.Fields(s), " ")
	return titleCaser.String(strings.ToLower(s))
}
