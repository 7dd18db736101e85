package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/raine/pricetag-scanner/config"
	"github.com/raine/pricetag-scanner/internal/client"
	"github.com/raine/pricetag-scanner/internal/llm"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

func main() {
	serverURL := flag.String("server", "", "Analyze via a running server instead of calling Gemini directly")
	currency := flag.String("currency", "USD", "Target currency code")
	region := flag.String("region", "Australia", "Region the price tag is from")
	price := flag.String("price", "", "Typed price to analyze instead of images")
	parallel := flag.Int("parallel", 4, "Maximum concurrent analyses")
	rawJSON := flag.Bool("json", false, "Output raw JSON only")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [flags] [-price P | image...]\n\n", os.Args[0])
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nEnvironment variables:\n")
		fmt.Fprintf(os.Stderr, "  GEMINI_API_KEY - Required unless -server is given\n")
	}
	flag.Parse()

	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	requests, err := buildRequests(*price, flag.Args(), *currency, *region)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n\n", err)
		flag.Usage()
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	analyzer, err := newAnalyzer(ctx, *serverURL)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	results, err := analyzeAll(ctx, analyzer, requests, *parallel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error analyzing price: %v\n", err)
		os.Exit(1)
	}

	if *rawJSON {
		out, _ := json.MarshalIndent(results, "", "  ")
		fmt.Println(string(out))
		return
	}

	for i, r := range results {
		if i > 0 {
			fmt.Println()
		}
		printResult(requests[i].label, r)
	}
	printTotal(results, *currency)
}

type labeledRequest struct {
	label string
	req   llm.Request
}

func buildRequests(price string, paths []string, currency, region string) ([]labeledRequest, error) {
	if price != "" {
		if len(paths) > 0 {
			return nil, fmt.Errorf("use either -price or image paths, not both")
		}
		return []labeledRequest{{
			label: "Price: " + price,
			req:   llm.Request{PriceText: price, Currency: currency, Region: region},
		}}, nil
	}

	if len(paths) == 0 {
		return nil, fmt.Errorf("no price or image given")
	}

	requests := make([]labeledRequest, 0, len(paths))
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read image: %w", err)
		}
		requests = append(requests, labeledRequest{
			label: path,
			req:   llm.Request{Image: data, Currency: currency, Region: region},
		})
	}
	return requests, nil
}

func newAnalyzer(ctx context.Context, serverURL string) (llm.PriceAnalyzer, error) {
	if serverURL != "" {
		return client.NewClient(client.ClientOpts{BaseURL: serverURL}), nil
	}

	config.LoadEnvFile()
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	gen, err := llm.NewGeminiGenerator(ctx, llm.GeminiOptions{
		APIKey:  cfg.GeminiAPIKey,
		Model:   cfg.GeminiModel,
		BaseURL: cfg.GeminiBaseURL,
	})
	if err != nil {
		return nil, err
	}
	return llm.NewAnalyzer(gen), nil
}

// analyzeAll runs the requests concurrently and returns results in request
// order. The first failure cancels the rest.
func analyzeAll(ctx context.Context, analyzer llm.PriceAnalyzer, requests []labeledRequest, parallel int) ([]*llm.Result, error) {
	results := make([]*llm.Result, len(requests))
	g, ctx := errgroup.WithContext(ctx)
	if parallel > 0 {
		g.SetLimit(parallel)
	}

	for i := range requests {
		g.Go(func() error {
			r, err := analyzer.Analyze(ctx, requests[i].req)
			if err != nil {
				return fmt.Errorf("%s: %w", requests[i].label, err)
			}
			results[i] = r
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func printResult(label string, result *llm.Result) {
	a := result.Analysis
	fmt.Printf("=== %s ===\n", label)
	fmt.Printf("Detected price:    %s %s\n", a.DetectedPrice(), a.OriginalCurrency())
	fmt.Printf("Converted price:   %s\n", a.ConvertedPrice())
	fmt.Printf("Tax rate:          %s\n", a.TaxRate())
	fmt.Printf("Taxes:             %s\n", a.Taxes())
	fmt.Printf("Total (local):     %s\n", a.TotalPriceLocal())
	fmt.Printf("Total:             %s\n", a.TotalPrice())
	if result.Usage.TotalTokens > 0 {
		fmt.Printf("Tokens:            %d in / %d out / %d total\n",
			result.Usage.InputTokens, result.Usage.OutputTokens, result.Usage.TotalTokens)
		fmt.Printf("Cost:              $%.6f\n", result.Usage.CostUSD)
	}
}

func printTotal(results []*llm.Result, currency string) {
	analyses := make([]llm.PriceAnalysis, 0, len(results))
	for _, r := range results {
		analyses = append(analyses, r.Analysis)
	}
	sum, skipped := llm.SumTotals(analyses)

	fmt.Println()
	fmt.Printf("Grand total:       %s %s\n", sum.StringFixed(2), currency)
	if skipped > 0 {
		fmt.Printf("                   (%d item(s) without a readable total)\n", skipped)
	}
}
