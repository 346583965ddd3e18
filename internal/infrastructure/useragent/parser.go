// Package useragent classifies User-Agent headers into the device
// attributes stored on click events.
package useragent

import (
	"strings"

	"github.com/IgorGrieder/linkhive/internal/processing/analytics"
	"github.com/ua-parser/uap-go/uaparser"
	"go.uber.org/zap"
)

const (
	DeviceBot     = "bot"
	DeviceTablet  = "tablet"
	DeviceMobile  = "mobile"
	DeviceDesktop = "desktop"
	DeviceUnknown = "unknown"
)

var (
	botIndicators = []string{
		"googlebot", "bingbot", "slurp", "duckduckbot", "baiduspider",
		"yandexbot", "facebookexternalhit", "twitterbot", "linkedinbot",
		"whatsapp", "telegrambot", "skypeuripreview", "bot", "crawler",
		"spider", "scraper",
	}
	tabletDevices = []string{"ipad", "tablet", "kindle", "surface"}
	mobileDevices = []string{"iphone", "android", "blackberry", "windows phone", "mobile", "phone"}
	mobileOS      = []string{"ios", "android", "windows phone", "blackberry os", "firefox os", "sailfish os"}
	desktopOS     = []string{
		"windows", "mac os x", "macos", "linux", "ubuntu",
		"chrome os", "freebsd", "openbsd", "netbsd",
	}
)

// Parser wraps the uap-go regex parser with device type classification.
type Parser struct {
	parser *uaparser.Parser
	log    *zap.Logger
}

// New builds a parser from the regex definitions bundled with uap-go.
func New(log *zap.Logger) *Parser {
	if log == nil {
		log = zap.NewNop()
	}
	return &Parser{parser: uaparser.NewFromSaved(), log: log}
}

// Detect returns the device attributes for a raw User-Agent. An empty header
// yields "unknown" for every field.
func (p *Parser) Detect(userAgent string) analytics.Device {
	if strings.TrimSpace(userAgent) == "" {
		return analytics.Device{Type: DeviceUnknown, Browser: DeviceUnknown, OS: DeviceUnknown}
	}

	client := p.parser.Parse(userAgent)
	device := analytics.Device{
		Type:    classify(client, userAgent),
		Browser: family(client.UserAgent.Family),
		OS:      family(client.Os.Family),
	}

	p.log.Debug("parsed user agent",
		zap.String("device_type", device.Type),
		zap.String("browser", device.Browser),
		zap.String("os", device.OS),
	)
	return device
}

func classify(client *uaparser.Client, userAgent string) string {
	ua := strings.ToLower(userAgent)
	if containsAny(strings.ToLower(client.UserAgent.Family), botIndicators) || containsAny(ua, botIndicators) ||
		strings.EqualFold(client.Device.Family, "Spider") {
		return DeviceBot
	}

	deviceFamily := strings.ToLower(client.Device.Family)
	if deviceFamily != "" && deviceFamily != "other" {
		if containsAny(deviceFamily, tabletDevices) {
			return DeviceTablet
		}
		if containsAny(deviceFamily, mobileDevices) {
			return DeviceMobile
		}
	}

	osFamily := strings.ToLower(client.Os.Family)
	if containsAny(osFamily, mobileOS) {
		switch {
		case strings.Contains(osFamily, "ios") && strings.Contains(ua, "ipad"):
			return DeviceTablet
		case strings.Contains(osFamily, "android") && !strings.Contains(ua, "mobile"):
			// Android tablets omit "Mobile" from the UA.
			return DeviceTablet
		}
		return DeviceMobile
	}

	if containsAny(osFamily, desktopOS) {
		return DeviceDesktop
	}
	return DeviceUnknown
}

func containsAny(s string, needles []string) bool {
	if s == "" {
		return false
	}
	for _, n := range needles {
		if strings.Contains(s, n) {
			return true
		}
	}
	return false
}

func family(s string) string {
	if s == "" || s == "Other" {
		return DeviceUnknown
	}
	return s
}
