package holidaysync

import "testing"

func TestParseFeedICal(t *testing.T) {
	feed := "BEGIN:VCALENDAR\r\n" +
		"PRODID:-//Test//EN\r\n" +
		"BEGIN:VEVENT\r\n" +
		"DTSTART;VALUE=DATE:20250101\r\n" +
		"SUMMARY:New Year's Day\r\n" +
		"END:VEVENT\r\n" +
		"BEGIN:VEVENT\r\n" +
		"DTSTART:20250131T093000Z\r\n" +
		"SUMMARY:Chinese New Year\r\n" +
		"END:VEVENT\r\n" +
		"SUMMARY:Orphan without a date\r\n" +
		"BEGIN:VEVENT\r\n" +
		"DTSTART;VALUE=DATE:20250101\r\n" +
		"SUMMARY:Duplicate New Year\r\n" +
		"END:VEVENT\r\n" +
		"END:VCALENDAR\r\n"

	got := parseFeed(feed)
	want := []struct {
		date string
		name string
	}{
		{"2025-01-01", "New Year's Day"},
		{"2025-01-31", "Chinese New Year"},
	}
	if len(got) != len(want) {
		t.Fatalf("expected %d holidays, got %d: %+v", len(want), len(got), got)
	}
	for i, w := range want {
		if got[i].Date != w.date || got[i].Description != w.name {
			t.Fatalf("entry %d: expected %s %q, got %s %q", i, w.date, w.name, got[i].Date, got[i].Description)
		}
	}
}

func TestParseFeedPlainLines(t *testing.T) {
	feed := "2025-08-31: Merdeka Day\n" +
		"not a holiday line\n" +
		"2025-12-25: Christmas Day\n" +
		"2025-12-25: Christmas Again\n" +
		"2025-09-16:\n"

	got := parseFeed(feed)
	if len(got) != 2 {
		t.Fatalf("expected 2 holidays, got %d: %+v", len(got), got)
	}
	if got[0].Date != "2025-08-31" || got[0].Description != "Merdeka Day" {
		t.Fatalf("unexpected first entry: %+v", got[0])
	}
	if got[1].Description != "Christmas Day" {
		t.Fatalf("duplicate date must keep the first description, got %q", got[1].Description)
	}
}

func TestParseFeedLaterDtstartWins(t *testing.T) {
	feed := "DTSTART;VALUE=DATE:20250101\n" +
		"DTSTART;VALUE=DATE:20250102\n" +
		"SUMMARY:Slid Holiday\n"

	got := parseFeed(feed)
	if len(got) != 1 || got[0].Date != "2025-01-02" {
		t.Fatalf("expected single entry on 2025-01-02, got %+v", got)
	}
}

func TestParseFeedEmpty(t *testing.T) {
	if got := parseFeed(""); len(got) != 0 {
		t.Fatalf("empty feed expected no holidays, got %+v", got)
	}
}
