// Package uagent turns raw User-Agent strings into coarse browser and
// operating system labels for the download history views.
package uagent

import (
	"regexp"
	"strings"
)

// BrowserInfo is the classification result. Both fields always hold a
// value; unrecognized input maps to "Unknown"/"Other".
type BrowserInfo struct {
	Browser string `json:"browser"`
	OS      string `json:"os"`
}

// Automated agents get a sentinel OS label so the UI can flag non-human
// traffic. These are matched before any browser detection because crawler
// strings often embed browser tokens too.
const (
	osCrawler     = "Crawler"
	osCommandLine = "Command Line"
	osAPITool     = "API Tool"
)

type automationSig struct {
	marker  string
	browser string
	os      string
	version *regexp.Regexp
}

var automationSigs = []automationSig{
	// Search engine crawlers
	{marker: "googlebot", browser: "Googlebot", os: osCrawler},
	{marker: "bingbot", browser: "Bingbot", os: osCrawler},
	{marker: "baiduspider", browser: "Baiduspider", os: osCrawler},
	{marker: "yandexbot", browser: "YandexBot", os: osCrawler},
	{marker: "duckduckbot", browser: "DuckDuckBot", os: osCrawler},
	// AI model crawlers
	{marker: "gptbot", browser: "GPTBot", os: osCrawler},
	{marker: "claudebot", browser: "ClaudeBot", os: osCrawler},
	{marker: "ccbot", browser: "CCBot", os: osCrawler},
	{marker: "bytespider", browser: "Bytespider", os: osCrawler},
	// Archival crawlers
	{marker: "ia_archiver", browser: "Internet Archive", os: osCrawler},
	{marker: "archive.org_bot", browser: "Internet Archive", os: osCrawler},
	// Social link preview bots
	{marker: "facebookexternalhit", browser: "Facebook Preview", os: osCrawler},
	{marker: "twitterbot", browser: "Twitterbot", os: osCrawler},
	{marker: "slackbot", browser: "Slackbot", os: osCrawler},
	{marker: "telegrambot", browser: "TelegramBot", os: osCrawler},
	{marker: "discordbot", browser: "Discordbot", os: osCrawler},
	{marker: "linkedinbot", browser: "LinkedInBot", os: osCrawler},
	// Command line tools
	{marker: "curl/", browser: "cURL", os: osCommandLine, version: regexp.MustCompile(`(?i)curl/([\d.]+)`)},
	{marker: "wget/", browser: "Wget", os: osCommandLine, version: regexp.MustCompile(`(?i)wget/([\d.]+)`)},
	{marker: "powershell", browser: "PowerShell", os: osCommandLine},
	// API clients and HTTP libraries
	{marker: "postman", browser: "Postman", os: osAPITool, version: regexp.MustCompile(`(?i)postman(?:runtime)?/([\d.]+)`)},
	{marker: "insomnia", browser: "Insomnia", os: osAPITool},
	{marker: "python-requests", browser: "Python Requests", os: osAPITool, version: regexp.MustCompile(`(?i)python-requests/([\d.]+)`)},
	{marker: "go-http-client", browser: "Go HTTP Client", os: osAPITool},
	{marker: "okhttp", browser: "OkHttp", os: osAPITool, version: regexp.MustCompile(`(?i)okhttp/([\d.]+)`)},
	{marker: "java/", browser: "Java HTTP Client", os: osAPITool},
}

var (
	winVersionRe   = regexp.MustCompile(`Windows NT ([\d.]+)`)
	macVersionRe   = regexp.MustCompile(`Mac OS X ([\d_]+)`)
	androidRe      = regexp.MustCompile(`Android ([\d.]+)`)
	iosRe          = regexp.MustCompile(`OS ([\d_]+)`)
	edgeRe         = regexp.MustCompile(`Edg/([\d.]+)`)
	edgeLegacyRe   = regexp.MustCompile(`Edge/([\d.]+)`)
	operaRe        = regexp.MustCompile(`OPR/([\d.]+)`)
	braveRe        = regexp.MustCompile(`Brave/([\d.]+)`)
	chromeRe       = regexp.MustCompile(`Chrome/([\d.]+)`)
	firefoxRe      = regexp.MustCompile(`Firefox/([\d.]+)`)
	safariVerRe    = regexp.MustCompile(`Version/([\d.]+)`)
	tridentRe      = regexp.MustCompile(`rv:([\d.]+)`)
	genericBotRe   = regexp.MustCompile(`(?i)bot|crawler|spider|crawling|curl|wget|postman`)
	mobileMarkerRe = regexp.MustCompile(`(?i)Mobile|Android|iPhone|iPad|iPod|BlackBerry|IEMobile|Opera Mini`)
)

// Windows NT kernel versions to marketing names
var winVersionMap = map[string]string{
	"10.0": "10/11",
	"6.3":  "8.1",
	"6.2":  "8",
	"6.1":  "7",
	"6.0":  "Vista",
	"5.1":  "XP",
	"5.0":  "2000",
}

// Classify maps a raw User-Agent string to browser and OS labels. It is a
// total function: any input, including empty, yields a usable result.
// Automation signatures win over browser tokens. Edge is checked before
// Chrome (its UA contains the Chrome token), Safari only matches when the
// Chrome token is absent.
func Classify(userAgent string) BrowserInfo {
	if userAgent == "" || userAgent == "unknown" {
		return BrowserInfo{Browser: "Unknown", OS: "Unknown"}
	}

	lower := strings.ToLower(userAgent)
	for _, sig := range automationSigs {
		if !strings.Contains(lower, sig.marker) {
			continue
		}

		browser := sig.browser
		if sig.version != nil {
			if m := sig.version.FindStringSubmatch(userAgent); m != nil {
				browser += " " + m[1]
			}
		}

		return BrowserInfo{Browser: browser, OS: sig.os}
	}

	os, osVersion := classifyOS(userAgent)
	browser, browserVersion := classifyBrowser(userAgent)

	if mobileMarkerRe.MatchString(userAgent) && strings.Contains(userAgent, "Mobile") {
		switch os {
		case "iOS", "Android":
			browser += " Mobile"
		}
	}

	if browserVersion != "" {
		browser += " " + browserVersion
	}
	if osVersion != "" {
		os += " " + osVersion
	}

	return BrowserInfo{Browser: browser, OS: os}
}

func classifyOS(ua string) (name, version string) {
	switch {
	case strings.Contains(ua, "Windows NT"):
		name = "Windows"
		if m := winVersionRe.FindStringSubmatch(ua); m != nil {
			if v, ok := winVersionMap[m[1]]; ok {
				version = v
			} else {
				version = m[1]
			}
		}
	case strings.Contains(ua, "iPhone OS") || (strings.Contains(ua, "like Mac OS X") && iosRe.MatchString(ua)):
		name = "iOS"
		if m := iosRe.FindStringSubmatch(ua); m != nil {
			version = strings.ReplaceAll(m[1], "_", ".")
		}
	case strings.Contains(ua, "Mac OS X"):
		name = "macOS"
		if m := macVersionRe.FindStringSubmatch(ua); m != nil {
			version = strings.ReplaceAll(m[1], "_", ".")
		}
	case strings.Contains(ua, "Android"):
		name = "Android"
		if m := androidRe.FindStringSubmatch(ua); m != nil {
			version = m[1]
		}
	case strings.Contains(ua, "Linux"):
		name = "Linux"
		for _, distro := range []string{"Ubuntu", "CentOS", "Debian", "Fedora"} {
			if strings.Contains(ua, distro) {
				version = distro
				break
			}
		}
	default:
		name = "Unknown"
	}

	return name, version
}

func classifyBrowser(ua string) (name, version string) {
	pick := func(n string, re *regexp.Regexp) (string, string) {
		if m := re.FindStringSubmatch(ua); m != nil {
			return n, m[1]
		}
		return n, ""
	}

	switch {
	case strings.Contains(ua, "Edg/"):
		return pick("Edge", edgeRe)
	case strings.Contains(ua, "Edge/"):
		return pick("Edge Legacy", edgeLegacyRe)
	case strings.Contains(ua, "Chrome/"):
		if strings.Contains(ua, "OPR/") {
			return pick("Opera", operaRe)
		}
		if strings.Contains(ua, "Brave/") {
			return pick("Brave", braveRe)
		}
		return pick("Chrome", chromeRe)
	case strings.Contains(ua, "Firefox/"):
		return pick("Firefox", firefoxRe)
	case strings.Contains(ua, "Safari/"):
		// Chrome UAs also carry the Safari token
		return pick("Safari", safariVerRe)
	case strings.Contains(ua, "Trident/"):
		return pick("Internet Explorer", tridentRe)
	}

	return "Other", ""
}

// IsBot reports whether the user agent looks like a crawler or an
// automation tool.
func IsBot(userAgent string) bool {
	lower := strings.ToLower(userAgent)
	for _, sig := range automationSigs {
		if strings.Contains(lower, sig.marker) {
			return true
		}
	}

	return genericBotRe.MatchString(userAgent)
}

// IsMobile reports whether the user agent looks like a mobile device.
func IsMobile(userAgent string) bool {
	return mobileMarkerRe.MatchString(userAgent)
}
