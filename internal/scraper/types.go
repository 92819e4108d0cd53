package scraper

import (
	"net"
	"strconv"
)

type ScrapeOutput struct {
	ip        string
	port      int
	protocol  string
	source    string
	country   string
	anonymity string
}

func NewScrapeOutput(ip string, port int, protocol, source string) *ScrapeOutput {
	return &ScrapeOutput{
		ip:       ip,
		port:     port,
		protocol: protocol,
		source:   source,
	}
}

// WithDetails attaches the country and anonymity a source advertises.
func (s *ScrapeOutput) WithDetails(country, anonymity string) *ScrapeOutput {
	s.country = country
	s.anonymity = anonymity
	return s
}

func (s *ScrapeOutput) IP() string        { return s.ip }
func (s *ScrapeOutput) Port() int         { return s.port }
func (s *ScrapeOutput) Protocol() string  { return s.protocol }
func (s *ScrapeOutput) Source() string    { return s.source }
func (s *ScrapeOutput) Country() string   { return s.country }
func (s *ScrapeOutput) Anonymity() string { return s.anonymity }

func (s *ScrapeOutput) Address() string {
	return net.JoinHostPort(s.ip, strconv.Itoa(s.port))
}
