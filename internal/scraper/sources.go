package scraper

type Format string

const (
	FormatText   Format = "text"
	FormatHTML   Format = "html"
	FormatJSON   Format = "json"
	FormatGitHub Format = "github"
)

// Source is one place candidates are harvested from. Type is the protocol
// assigned to every entry; when empty the source decides per entry.
type Source struct {
	Name   string
	URL    string
	Type   string
	Format Format
}

func PublicSources() []Source {
	return []Source{
		// HTML tables
		{Name: "free-proxy-list", URL: "https://www.free-proxy-list.net/", Format: FormatHTML},
		{Name: "ssl-proxies", URL: "https://www.sslproxies.org/", Format: FormatHTML},
		{Name: "us-proxies", URL: "https://www.us-proxy.org/", Format: FormatHTML},

		// Plain lists
		{Name: "TheSpeedX-HTTP", URL: "https://raw.githubusercontent.com/TheSpeedX/PROXY-List/master/http.txt", Type: "http", Format: FormatText},
		{Name: "Monosans-HTTP", URL: "https://raw.githubusercontent.com/monosans/proxy-list/main/proxies/http.txt", Type: "http", Format: FormatText},
		{Name: "ShiftyTR-HTTP", URL: "https://raw.githubusercontent.com/ShiftyTR/Proxy-List/master/http.txt", Type: "http", Format: FormatText},
		{Name: "ShiftyTR-HTTPS", URL: "https://raw.githubusercontent.com/ShiftyTR/Proxy-List/master/https.txt", Type: "https", Format: FormatText},

		// Repositories tagged topic:proxy-list
		{Name: "github", URL: "https://api.github.com", Format: FormatGitHub},
	}
}
