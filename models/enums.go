package models

import "strings"

type Channel string

const (
	ChannelFPX            Channel = "FPX"
	ChannelFPXC           Channel = "FPXC"
	ChannelTNG            Channel = "TNG"
	ChannelBoost          Channel = "BOOST"
	ChannelShopee         Channel = "SHOPEE"
	ChannelEwalletGeneric Channel = "EWALLET_GENERIC"
)

// Bucket is the settlement rail a channel clears through. The deposit
// ledger only tracks two buckets; named e-wallet channels stay distinct
// in the variance ledger.
type Bucket string

const (
	BucketFPX     Bucket = "fpx"
	BucketEwallet Bucket = "ewallet"
)

// Bucket maps a channel onto its deposit-ledger bucket. Only consumer
// FPX clears through the FPX rail; FPXC is business FPX and settles with
// the e-wallet pool, never with FPX.
func (c Channel) Bucket() Bucket {
	if c == ChannelFPX {
		return BucketFPX
	}
	return BucketEwallet
}

// FeeType values are part of the external contract and must match these
// strings exactly. `percent` and `per_order` are legacy spellings still
// produced by older clients; they are kept verbatim in storage and mapped
// to their canonical meaning at computation time.
type FeeType string

const (
	FeeTypePercentage FeeType = "percentage"
	FeeTypePerVolume  FeeType = "per_volume"
	FeeTypeFlat       FeeType = "flat"

	// legacy aliases
	FeeTypePercent  FeeType = "percent"
	FeeTypePerOrder FeeType = "per_order"
)

// CanonicalFeeType folds legacy aliases into the canonical fee type.
// Unknown strings come back unchanged (lowercased) so callers can decide
// whether to reject or ignore them.
func CanonicalFeeType(s string) FeeType {
	switch FeeType(strings.ToLower(strings.TrimSpace(s))) {
	case FeeTypePercent, FeeTypePercentage:
		return FeeTypePercentage
	case FeeTypePerOrder, FeeTypePerVolume:
		return FeeTypePerVolume
	case FeeTypeFlat:
		return FeeTypeFlat
	default:
		return FeeType(strings.ToLower(strings.TrimSpace(s)))
	}
}

func IsValidFeeType(s string) bool {
	switch CanonicalFeeType(s) {
	case FeeTypePercentage, FeeTypePerVolume, FeeTypeFlat:
		return true
	}
	return false
}

// TransactionSource identifies which side of the reconciliation a raw
// record came from.
type TransactionSource string

const (
	SourceKira    TransactionSource = "kira"
	SourceGateway TransactionSource = "pg"
	SourceBank    TransactionSource = "bank"
)

type JobStatus string

const (
	JobStatusPending   JobStatus = "pending"
	JobStatusRunning   JobStatus = "running"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
)

type JobType string

const (
	JobTypeFullSync     JobType = "full_sync"
	JobTypePlatformSync JobType = "platform_sync"
	JobTypeParse        JobType = "parse"
	JobTypeHolidaySync  JobType = "holiday_sync"
	JobTypeRebuild      JobType = "rebuild"
)

// Parameter types. Key semantics per type:
//   - settlement_rule: key = lowercased channel name, value = "T+<N>"
//   - add_on_holiday / public_holiday: key = "YYYY-MM-DD", value = name
//   - fee_config: key = "<entity>|<bucket>", value = "<fee_type>:<rate>"
const (
	ParameterTypeSettlementRule = "settlement_rule"
	ParameterTypeAddOnHoliday   = "add_on_holiday"
	ParameterTypePublicHoliday  = "public_holiday"
	ParameterTypeFeeConfig      = "fee_config"
)
