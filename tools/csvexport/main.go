// Command csvexport reads a JSONL stream of decoded credential.Record
// objects (as emitted by cmd/aamvadecode) and writes identity/address
// fields, dates and the warning count as CSV rows, one decoded credential
// per row. Physical fields (sex, height, weight) are not exported.
package main

import (
	"bufio"
	"encoding/csv"
	"encoding/json"
	"flag"
	"fmt"
	"os"
)

// recordRow mirrors the subset of credential.Record fields this tool
// exports; it decodes the same JSON shape cmd/aamvadecode writes under its
// "record" key without importing internal/credential, keeping this tool a
// thin consumer of the JSONL contract rather than a second copy of Record.
type recordRow struct {
	First    string
	Last     string
	Address  string
	City     string
	State    string
	ZIP      string
	IIN      string
	DOB      string
	Expiry   string
	Sex      json.RawMessage
	Height   json.RawMessage
	Weight   json.RawMessage
	CardType json.RawMessage
	Warnings []string
}

type line struct {
	Record *recordRow `json:"record,omitempty"`
	Error  string     `json:"error,omitempty"`
}

var header = []string{"first", "last", "address", "city", "state", "zip", "iin", "dob", "expiry", "warning_count"}

func main() {
	inPath := flag.String("input", "", "Input JSONL file (default: stdin)")
	outPath := flag.String("output", "", "Output CSV file (default: stdout)")
	skipErrors := flag.Bool("skip-errors", true, "Skip lines that failed to decode instead of erroring out")
	flag.Parse()

	var r *os.File = os.Stdin
	if *inPath != "" {
		f, err := os.Open(*inPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error opening input: %v\n", err)
			os.Exit(1)
		}
		defer f.Close()
		r = f
	}

	var w *os.File = os.Stdout
	if *outPath != "" {
		f, err := os.Create(*outPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error creating output: %v\n", err)
			os.Exit(1)
		}
		defer f.Close()
		w = f
	}

	writer := csv.NewWriter(w)
	if err := writer.Write(header); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing header: %v\n", err)
		os.Exit(1)
	}

	scanner := bufio.NewScanner(r)
	buf := make([]byte, 0, 1024*1024)
	scanner.Buffer(buf, 60*1024*1024)

	rows, skipped := 0, 0
	for scanner.Scan() {
		var l line
		if err := json.Unmarshal(scanner.Bytes(), &l); err != nil {
			skipped++
			continue
		}
		if l.Record == nil {
			if !*skipErrors {
				fmt.Fprintf(os.Stderr, "Error line with no decoded record: %s\n", l.Error)
				os.Exit(1)
			}
			skipped++
			continue
		}

		rec := l.Record
		row := []string{
			rec.First, rec.Last, rec.Address, rec.City, rec.State, rec.ZIP,
			rec.IIN, rec.DOB, rec.Expiry, fmt.Sprintf("%d", len(rec.Warnings)),
		}
		if err := writer.Write(row); err != nil {
			fmt.Fprintf(os.Stderr, "Error writing row: %v\n", err)
			os.Exit(1)
		}
		rows++
	}

	if err := scanner.Err(); err != nil {
		fmt.Fprintf(os.Stderr, "Error reading input: %v\n", err)
		os.Exit(1)
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		fmt.Fprintf(os.Stderr, "Error flushing CSV: %v\n", err)
		os.Exit(1)
	}

	fmt.Fprintf(os.Stderr, "Wrote %d rows (%d skipped)\n", rows, skipped)
}
