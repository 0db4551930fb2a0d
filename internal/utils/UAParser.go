package utils

import (
	"fmt"

	"github.com/medama-io/go-useragent"
)

var uaParser = useragent.NewParser()

// DescribeUserAgent reduces a raw user agent to "browser version/os" for log lines
func DescribeUserAgent(inputUA string) string {
	if inputUA == "" {
		return "-"
	}
	if len(inputUA) < 8 || inputUA[:8] != "Mozilla/" {
		return inputUA
	}

	ua := uaParser.Parse(inputUA)
	if ua.IsBot() {
		return fmt.Sprintf("bot:%s", ua.Browser())
	}
	return fmt.Sprintf("%s %s/%s", ua.Browser(), ua.BrowserVersion(), ua.OS())
}
