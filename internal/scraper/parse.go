package scraper

import (
	"encoding/json"
	"fmt"
	"io"
	"net"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

const maxJSONDepth = 32

var textPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(\d{1,3}\.\d{1,3}\.\d{1,3}\.\d{1,3}):(\d{1,5})`),
	regexp.MustCompile(`(\d{1,3}\.\d{1,3}\.\d{1,3}\.\d{1,3})[ \t]+(\d{1,5})`),
}

// ParseText extracts IP:PORT and "IP PORT" pairs from free-form text.
func ParseText(content string, source Source) []*ScrapeOutput {
	seen := make(map[string]struct{})
	var out []*ScrapeOutput

	for _, re := range textPatterns {
		for _, m := range re.FindAllStringSubmatch(content, -1) {
			p, err := newEntry(m[1], m[2], source.Type, source)
			if err != nil {
				continue
			}
			if _, dup := seen[p.Address()]; dup {
				continue
			}
			seen[p.Address()] = struct{}{}
			out = append(out, p)
		}
	}
	return out
}

type jsonNode struct {
	value any
	depth int
}

// ParseJSON walks an arbitrary JSON document and collects every object that
// carries an ip/host/address field next to a port.
func ParseJSON(data []byte, source Source) ([]*ScrapeOutput, error) {
	var root any
	if err := json.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("decode json: %w", err)
	}

	var out []*ScrapeOutput
	work := []jsonNode{{value: root}}
	for len(work) > 0 {
		n := work[len(work)-1]
		work = work[:len(work)-1]

		switch v := n.value.(type) {
		case map[string]any:
			if p, ok := entryFromObject(v, source); ok {
				out = append(out, p)
			}
			if n.depth >= maxJSONDepth {
				continue
			}
			for _, child := range v {
				work = append(work, jsonNode{value: child, depth: n.depth + 1})
			}
		case []any:
			if n.depth >= maxJSONDepth {
				continue
			}
			for i := len(v) - 1; i >= 0; i-- {
				work = append(work, jsonNode{value: v[i], depth: n.depth + 1})
			}
		}
	}
	return out, nil
}

func entryFromObject(obj map[string]any, source Source) (*ScrapeOutput, bool) {
	var host string
	for _, key := range []string{"ip", "host", "address"} {
		if s, ok := obj[key].(string); ok && s != "" {
			host = s
			break
		}
	}
	if host == "" {
		return nil, false
	}

	var port string
	switch v := obj["port"].(type) {
	case float64:
		port = strconv.FormatFloat(v, 'f', -1, 64)
	case string:
		port = v
	default:
		return nil, false
	}

	protocol := source.Type
	if s, ok := obj["protocol"].(string); ok && s != "" {
		protocol = s
	}

	p, err := newEntry(host, port, protocol, source)
	if err != nil {
		return nil, false
	}

	country, _ := obj["country"].(string)
	anonymity, _ := obj["anonymity"].(string)
	return p.WithDetails(country, normalizeAnonymity(anonymity)), true
}

var htmlColumns = map[string]string{
	"ip address": "ip",
	"ip":         "ip",
	"port":       "port",
	"code":       "code",
	"country":    "country",
	"anonymity":  "anonymity",
	"google":     "google",
	"https":      "https",
}

// Column order used by free-proxy-list style tables without a header row.
var defaultHTMLColumns = map[string]int{
	"ip":        0,
	"port":      1,
	"code":      2,
	"country":   3,
	"anonymity": 4,
	"google":    5,
	"https":     6,
}

// ParseHTMLTable reads the first proxy table of a page laid out as
// ip, port, code, country, anonymity, google, https.
func ParseHTMLTable(r io.Reader, source Source) ([]*ScrapeOutput, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	table := doc.Find("table.table").First()
	if table.Length() == 0 {
		table = doc.Find("table").First()
	}
	if table.Length() == 0 {
		return nil, nil
	}

	columns := headerColumns(table)

	var out []*ScrapeOutput
	table.Find("tr").Each(func(_ int, row *goquery.Selection) {
		cells := row.Find("td")
		if cells.Length() == 0 {
			return
		}
		cell := func(name string) string {
			idx, ok := columns[name]
			if !ok || idx >= cells.Length() {
				return ""
			}
			return strings.TrimSpace(cells.Eq(idx).Text())
		}

		protocol := source.Type
		if protocol == "" {
			protocol = "http"
			if strings.EqualFold(cell("https"), "yes") {
				protocol = "https"
			}
		}

		p, err := newEntry(cell("ip"), cell("port"), protocol, source)
		if err != nil {
			return
		}
		out = append(out, p.WithDetails(cell("country"), normalizeAnonymity(cell("anonymity"))))
	})
	return out, nil
}

func headerColumns(table *goquery.Selection) map[string]int {
	columns := make(map[string]int)
	table.Find("th").Each(func(i int, th *goquery.Selection) {
		name := strings.ToLower(strings.TrimSpace(th.Text()))
		if key, ok := htmlColumns[name]; ok {
			if _, exists := columns[key]; !exists {
				columns[key] = i
			}
		}
	})
	if _, ok := columns["ip"]; !ok {
		return defaultHTMLColumns
	}
	if _, ok := columns["port"]; !ok {
		return defaultHTMLColumns
	}
	return columns
}

// normalizeAnonymity turns labels like "elite proxy" into a single word.
func normalizeAnonymity(s string) string {
	fields := strings.Fields(strings.ToLower(s))
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}

func newEntry(host, port, protocol string, source Source) (*ScrapeOutput, error) {
	ip := net.ParseIP(strings.TrimSpace(host))
	if ip == nil || ip.To4() == nil {
		return nil, fmt.Errorf("%w: host %q", ErrInvalidProxy, host)
	}

	n, err := strconv.Atoi(strings.TrimSpace(port))
	if err != nil || n < 1 || n > 65535 {
		return nil, fmt.Errorf("%w: port %q", ErrInvalidProxy, port)
	}

	protocol = strings.ToLower(strings.TrimSpace(protocol))
	if protocol == "" {
		protocol = "http"
	}

	return NewScrapeOutput(ip.String(), n, protocol, source.Name), nil
}
