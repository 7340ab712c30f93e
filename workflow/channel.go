package workflow

import (
	"strings"

	"bitbucket.org/kiranetwork/recon_backend/models"
)

// NormalizeChannel maps a free-text payment method string onto the
// canonical channel. Matching is case-insensitive substring matching
// with explicit precedence: business-FPX markers are checked BEFORE the
// generic FPX markers, otherwise "FPX B2B" would land on consumer FPX.
// Unrecognized strings fall back to EWALLET_GENERIC, never an error.
func NormalizeChannel(raw string) models.Channel {
	s := strings.ToUpper(strings.TrimSpace(raw))

	for _, marker := range []string{"FPXC", "B2B", "CORP"} {
		if strings.Contains(s, marker) {
			return models.ChannelFPXC
		}
	}
	for _, marker := range []string{"FPX", "B2C", "CASA"} {
		if strings.Contains(s, marker) {
			return models.ChannelFPX
		}
	}
	for _, marker := range []string{"TNG", "TOUCH"} {
		if strings.Contains(s, marker) {
			return models.ChannelTNG
		}
	}
	if strings.Contains(s, "BOOST") {
		return models.ChannelBoost
	}
	if strings.Contains(s, "SHOPEE") {
		return models.ChannelShopee
	}
	return models.ChannelEwalletGeneric
}
