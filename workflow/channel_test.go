package workflow

import (
	"testing"

	"bitbucket.org/kiranetwork/recon_backend/models"
)

func TestNormalizeChannel(t *testing.T) {
	cases := []struct {
		raw  string
		want models.Channel
	}{
		// Business-FPX markers take precedence over the generic FPX
		// match; "FPX B2B" must not land on consumer FPX.
		{"FPX B2B", models.ChannelFPXC},
		{"FPXC", models.ChannelFPXC},
		{"Corporate FPX", models.ChannelFPXC},
		{"fpx b2b corp", models.ChannelFPXC},

		{"FPX", models.ChannelFPX},
		{"FPX B2C", models.ChannelFPX},
		{"fpx b2c", models.ChannelFPX},
		{"DuitNow CASA", models.ChannelFPX},

		{"TNG", models.ChannelTNG},
		{"TNG eWallet", models.ChannelTNG},
		{"Touch 'n Go", models.ChannelTNG},

		{"Boost", models.ChannelBoost},
		{"BOOST WALLET", models.ChannelBoost},

		{"ShopeePay", models.ChannelShopee},
		{"shopee pay", models.ChannelShopee},

		// Anything unrecognized falls back, never errors.
		{"GrabPay", models.ChannelEwalletGeneric},
		{"", models.ChannelEwalletGeneric},
		{"   ", models.ChannelEwalletGeneric},
		{"bank transfer", models.ChannelEwalletGeneric},
	}
	for _, tc := range cases {
		got := NormalizeChannel(tc.raw)
		if got != tc.want {
			t.Fatalf("NormalizeChannel(%q) expected %s, got %s", tc.raw, tc.want, got)
		}
	}
}

func TestChannelBucket(t *testing.T) {
	cases := []struct {
		channel models.Channel
		want    models.Bucket
	}{
		{models.ChannelFPX, models.BucketFPX},
		// Corporate FPX settles with the e-wallet rail, not consumer FPX.
		{models.ChannelFPXC, models.BucketEwallet},
		{models.ChannelTNG, models.BucketEwallet},
		{models.ChannelBoost, models.BucketEwallet},
		{models.ChannelShopee, models.BucketEwallet},
		{models.ChannelEwalletGeneric, models.BucketEwallet},
	}
	for _, tc := range cases {
		if got := tc.channel.Bucket(); got != tc.want {
			t.Fatalf("%s.Bucket() expected %s, got %s", tc.channel, tc.want, got)
		}
	}
}
