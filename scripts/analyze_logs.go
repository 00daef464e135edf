package main

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

type LogStats struct {
	TotalErrors     int
	OrdersCreated   int
	OrdersApproved  int
	OrdersRejected  int
	OrdersCanceled  int
	PaymentsSettled int
	PaymentsFailed  int
	GatewayErrors   map[string]int
	BadSignatures   int
	ErrorPatterns   map[string]int
}

func main() {
	today := time.Now().Format("2006-01-02")
	logDir := "./logs"

	stats := &LogStats{
		GatewayErrors: make(map[string]int),
		ErrorPatterns: make(map[string]int),
	}

	analyzeFile(filepath.Join(logDir, fmt.Sprintf("info-%s.log", today)), stats, false)
	analyzeFile(filepath.Join(logDir, fmt.Sprintf("error-%s.log", today)), stats, true)

	printReport(stats)
}

func analyzeFile(path string, stats *LogStats, isErrorLog bool) {
	file, err := os.Open(path)
	if err != nil {
		fmt.Printf("Could not open %s: %v\n", path, err)
		return
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := scanner.Text()

		if isErrorLog {
			stats.TotalErrors++
			for _, provider := range []string{"zain_cash", "qi_card", "fast_pay", "fib"} {
				if strings.Contains(line, provider) {
					stats.GatewayErrors[provider]++
				}
			}
			if strings.Contains(line, "signature") {
				stats.BadSignatures++
			}
			if idx := strings.Index(line, "ERROR: "); idx >= 0 {
				pattern := line[idx+7:]
				if len(pattern) > 60 {
					pattern = pattern[:60]
				}
				stats.ErrorPatterns[pattern]++
			}
			continue
		}

		switch {
		case strings.Contains(line, "created for user"):
			stats.OrdersCreated++
		case strings.Contains(line, "approved by admin"):
			stats.OrdersApproved++
		case strings.Contains(line, "rejected by admin"):
			stats.OrdersRejected++
		case strings.Contains(line, "expiry sweep canceled"):
			stats.OrdersCanceled++
		case strings.Contains(line, "paid=true"):
			stats.PaymentsSettled++
		case strings.Contains(line, "paid=false"):
			stats.PaymentsFailed++
		}
	}
}

func printReport(stats *LogStats) {
	fmt.Println("=== Daily Log Report ===")
	fmt.Printf("Orders created:   %d\n", stats.OrdersCreated)
	fmt.Printf("Orders approved:  %d\n", stats.OrdersApproved)
	fmt.Printf("Orders rejected:  %d\n", stats.OrdersRejected)
	fmt.Printf("Orders canceled:  %d\n", stats.OrdersCanceled)
	fmt.Printf("Payments settled: %d\n", stats.PaymentsSettled)
	fmt.Printf("Payments failed:  %d\n", stats.PaymentsFailed)
	fmt.Printf("Total errors:     %d\n", stats.TotalErrors)
	fmt.Printf("Bad signatures:   %d\n", stats.BadSignatures)

	if len(stats.GatewayErrors) > 0 {
		fmt.Println("\nGateway errors:")
		for provider, count := range stats.GatewayErrors {
			fmt.Printf("  %-10s %d\n", provider, count)
		}
	}

	if len(stats.ErrorPatterns) > 0 {
		fmt.Println("\nTop error patterns:")
		type patternCount struct {
			pattern string
			count   int
		}
		var patterns []patternCount
		for p, c := range stats.ErrorPatterns {
			patterns = append(patterns, patternCount{p, c})
		}
		sort.Slice(patterns, func(i, j int) bool { return patterns[i].count > patterns[j].count })
		for i, p := range patterns {
			if i >= 10 {
				break
			}
			fmt.Printf("  %4d  %s\n", p.count, p.pattern)
		}
	}
}
