package whois

import (
	"fmt"
	"io"
)

// PrintRecord writes the human-readable block for one record.
func PrintRecord(w io.Writer, i, total int, rec Record) {
	fmt.Fprintf(w, "--- %s (%d of %d) ---\n", rec.Address, i+1, total)

	if rec.Skipped != "" {
		fmt.Fprintf(w, "  Skipped:      %s\n\n", rec.Skipped)
		return
	}
	if rec.Error != "" {
		fmt.Fprintf(w, "  Error:        %s\n", rec.Error)
		fmt.Fprintf(w, "  Assessment:   %s\n\n", rec.Verdict)
		return
	}

	if rec.ASN != nil {
		fmt.Fprintf(w, "  ASN:          AS%d\n", rec.ASN.ASN)
		fmt.Fprintf(w, "  ASN Desc:     %s\n", orNA(rec.ASN.Description))
		if rec.ASN.Prefix != "" {
			fmt.Fprintf(w, "  Prefix:       %s\n", rec.ASN.Prefix)
		}
		if rec.ASN.Country != "" || rec.ASN.Registry != "" {
			fmt.Fprintf(w, "  Country/RIR:  %s / %s\n", orNA(rec.ASN.Country), orNA(rec.ASN.Registry))
		}
	}
	if rec.Network != nil {
		fmt.Fprintf(w, "  Network Name: %s\n", orNA(rec.Network.NetName))
		fmt.Fprintf(w, "  Network Desc: %s\n", orNA(rec.Network.Description))
	} else if rec.WhoisError != "" {
		fmt.Fprintf(w, "  WHOIS:        %s\n", rec.WhoisError)
	}
	fmt.Fprintf(w, "  Assessment:   %s\n\n", rec.Verdict)
}

// Summary counts records per verdict, plus skipped and failed ones.
type Summary struct {
	Total                int `json:"total"`
	Skipped              int `json:"skipped"`
	Failed               int `json:"failed"`
	LikelyResidential    int `json:"likely_residential"`
	LikelyNonResidential int `json:"likely_non_residential"`
	Undetermined         int `json:"undetermined"`
}

// Summarize tallies records.
func Summarize(records []Record) Summary {
	s := Summary{Total: len(records)}
	for _, r := range records {
		switch {
		case r.Skipped != "":
			s.Skipped++
		case r.Error != "":
			s.Failed++
		case r.Verdict == LikelyResidential:
			s.LikelyResidential++
		case r.Verdict == LikelyNonResidential:
			s.LikelyNonResidential++
		default:
			s.Undetermined++
		}
	}
	return s
}

func orNA(s string) string {
	if s == "" {
		return "N/A"
	}
	return s
}
