package holidaysync

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"bitbucket.org/kiranetwork/recon_backend/config"
	"bitbucket.org/kiranetwork/recon_backend/utils"
	"bitbucket.org/kiranetwork/recon_backend/workflow"
	"github.com/sirupsen/logrus"
)

var icalDateRegex = regexp.MustCompile(`(\d{4})(\d{2})(\d{2})`)

// parseFeed extracts holiday dates from an iCal feed. Each VEVENT carries a
// DTSTART line (compact YYYYMMDD date) followed by a SUMMARY line (holiday
// name); the pair yields one entry. Lines outside that pairing are ignored,
// so the parser also tolerates plain "YYYY-MM-DD: name" feeds.
func parseFeed(feed string) []workflow.HolidayInput {
	var out []workflow.HolidayInput
	seen := make(map[string]struct{})
	currentDate := ""

	add := func(date, name string) {
		if _, dup := seen[date]; dup {
			return
		}
		seen[date] = struct{}{}
		out = append(out, workflow.HolidayInput{Date: date, Description: name})
	}

	for _, line := range strings.Split(feed, "\n") {
		line = strings.TrimSpace(line)

		if strings.HasPrefix(line, "DTSTART") {
			if m := icalDateRegex.FindStringSubmatch(line); m != nil {
				currentDate = fmt.Sprintf("%s-%s-%s", m[1], m[2], m[3])
			}
			continue
		}
		if strings.HasPrefix(line, "SUMMARY:") {
			name := strings.TrimSpace(strings.TrimPrefix(line, "SUMMARY:"))
			if currentDate != "" && name != "" {
				add(currentDate, name)
				currentDate = ""
			}
			continue
		}

		// Plain-text fallback: "YYYY-MM-DD: name".
		if len(line) > 11 && line[4] == '-' && line[7] == '-' && line[10] == ':' {
			name := strings.TrimSpace(line[11:])
			add(line[:10], name)
		}
	}
	return out
}

// Refresh pulls the public-holiday feed and upserts the dates as
// public_holiday parameters. Dates already present keep their row (the
// description is refreshed); dates missing from the feed are left alone,
// since past holidays must stay valid for historical settlement dates.
func Refresh(ctx context.Context) (int, error) {
	logger := config.GetLogger()

	client := newHolidayClient()
	feed, err := client.fetchFeed(ctx)
	if err != nil {
		ioErr := utils.NewExternalIOError("holiday feed fetch", err)
		config.LogError(logger, "holidaysync", "Refresh", client.sourceURL, nil, ioErr)
		return 0, ioErr
	}

	holidays := parseFeed(feed)
	if len(holidays) == 0 {
		config.LogWarn(logger, "holidaysync", "Refresh", client.sourceURL, "feed returned no parseable holidays")
		return 0, nil
	}

	count, err := workflow.UpsertPublicHolidays(ctx, holidays)
	if err != nil {
		config.LogError(logger, "holidaysync", "Refresh", client.sourceURL, nil, err)
		return 0, err
	}

	logger.WithFields(logrus.Fields{
		"field":    "holidaysync",
		"source":   client.sourceURL,
		"upserted": count,
	}).Info("public holidays refreshed")
	return count, nil
}
