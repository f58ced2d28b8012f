// Command aamvadecode decodes a JSONL stream of raw credential reads
// (magstripe track data, PDF417 barcode payloads, or DoD CAC barcodes) into
// decoded credential.Record JSON.
//
// Note about input format
// ------------------------
// Each input line is a JSON object with at least:
//   - payload: the raw credential bytes, base64-encoded
//   - format:  optional hint ("MAGSTRIPE", "PDF417", "CAC"); if absent or
//     unrecognized, every format is tried in the standard fallback order.
//
// Use -all to keep lines even when decoding failed, with the error recorded.
package main

import (
	"bufio"
	"encoding/base64"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"aamvadecode/internal/cac"
	"aamvadecode/internal/credential"
	"aamvadecode/internal/dispatch"
	"aamvadecode/internal/dlid"
	"aamvadecode/internal/magstripe"
)

// InputLine is one line of the JSONL input stream.
type InputLine struct {
	Payload string `json:"payload"`
	Format  string `json:"format,omitempty"`
}

// DecodeOut is one line of the JSONL output stream.
type DecodeOut struct {
	Record *credential.Record `json:"record,omitempty"`
	Error  string             `json:"error,omitempty"`
}

// Stats tracks basic counters across a run.
type Stats struct {
	Lines   int
	Decoded int
	Failed  int
	Skipped int
}

func usage(w io.Writer) {
	fmt.Fprintln(w, "aamvadecode - commands:")
	fmt.Fprintln(w, "  decode  - decode a JSONL stream of raw credential reads")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Usage:")
	fmt.Fprintln(w, "  aamvadecode decode -input reads.jsonl [-output out.jsonl] [-pretty] [-all] [-strict] [-stats]")
	fmt.Fprintln(w, "")
}

func main() {
	if len(os.Args) < 2 {
		usage(os.Stderr)
		os.Exit(2)
	}
	cmd := strings.ToLower(os.Args[1])
	switch cmd {
	case "decode":
		runDecode(os.Args[2:])
	case "-h", "--help", "help":
		usage(os.Stdout)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", cmd)
		usage(os.Stderr)
		os.Exit(2)
	}
}

func runDecode(args []string) {
	fs := flag.NewFlagSet("decode", flag.ExitOnError)
	inPath := fs.String("input", "", "Input JSONL file (default: stdin)")
	outPath := fs.String("output", "", "Output JSONL file (default: stdout)")
	pretty := fs.Bool("pretty", false, "Pretty-print each JSON output line")
	includeAll := fs.Bool("all", false, "Include lines even when decoding failed")
	strict := fs.Bool("strict", false, "Treat unknown code values as fatal")
	showStats := fs.Bool("stats", false, "Print basic counters to stderr")
	_ = fs.Parse(args)

	d := dispatch.New(magstripe.Decoder{}, dlid.Decoder{}, cac.Decoder{})

	var r io.Reader = os.Stdin
	if *inPath != "" {
		f, err := os.Open(*inPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to open input: %v\n", err)
			os.Exit(1)
		}
		defer f.Close()
		r = f
	}

	var w io.Writer = os.Stdout
	if *outPath != "" {
		f, err := os.Create(*outPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to create output: %v\n", err)
			os.Exit(1)
		}
		defer f.Close()
		w = f
	}

	scanner := bufio.NewScanner(r)
	buf := make([]byte, 0, 1024*1024)
	scanner.Buffer(buf, 60*1024*1024)

	st := &Stats{}
	enc := json.NewEncoder(w)

	for scanner.Scan() {
		st.Lines++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		var in InputLine
		if err := json.Unmarshal([]byte(line), &in); err != nil {
			st.Skipped++
			if *includeAll {
				writeLine(enc, w, DecodeOut{Error: fmt.Sprintf("invalid JSON: %v", err)}, *pretty)
			}
			continue
		}

		payload, err := base64.StdEncoding.DecodeString(in.Payload)
		if err != nil {
			st.Skipped++
			if *includeAll {
				writeLine(enc, w, DecodeOut{Error: fmt.Sprintf("invalid base64 payload: %v", err)}, *pretty)
			}
			continue
		}

		rec, err := d.Dispatch(payload, preferencesFor(in.Format), *strict)
		if err != nil {
			st.Failed++
			if *includeAll {
				writeLine(enc, w, DecodeOut{Error: err.Error()}, *pretty)
			}
			continue
		}

		st.Decoded++
		writeLine(enc, w, DecodeOut{Record: rec}, *pretty)
	}

	if err := scanner.Err(); err != nil {
		fmt.Fprintf(os.Stderr, "Input read error: %v\n", err)
		os.Exit(1)
	}

	if *showStats {
		fmt.Fprintf(os.Stderr, "stats: lines=%d decoded=%d failed=%d skipped=%d\n",
			st.Lines, st.Decoded, st.Failed, st.Skipped)
	}
}

func preferencesFor(hint string) []dispatch.Format {
	switch strings.ToUpper(hint) {
	case "MAGSTRIPE":
		return []dispatch.Format{dispatch.FormatMagstripe}
	case "PDF417":
		return []dispatch.Format{dispatch.FormatPDF417}
	case "CAC":
		return []dispatch.Format{dispatch.FormatCAC}
	default:
		return nil
	}
}

func writeLine(enc *json.Encoder, w io.Writer, out DecodeOut, pretty bool) {
	if pretty {
		b, err := json.MarshalIndent(out, "", "  ")
		if err != nil {
			return
		}
		_, _ = w.Write(b)
		_, _ = w.Write([]byte("\n"))
		return
	}
	_ = enc.Encode(out)
}
