package main

import (
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"text/tabwriter"
	"time"

	"github.com/joho/godotenv"
)

var (
	apiURL    = flag.String("api", "", "API base URL (default $ALBION_API_URL or http://localhost:8080)")
	command   = flag.String("cmd", "prices", "lookup to run: prices, history or gold")
	items     = flag.String("items", "", "comma separated item ids, wildcards allowed")
	locations = flag.String("locations", "", "comma separated locations")
	qualities = flag.String("qualities", "", "comma separated quality levels")
	scale     = flag.Int("scale", 0, "history time scale in hours (1, 6 or 24)")
	date      = flag.String("date", "", "window start date")
	endDate   = flag.String("end", "", "window end date")
	count     = flag.Int("count", 0, "number of gold prices to return")
	timeout   = flag.Int("timeout", 30, "request timeout (seconds)")
)

func main() {
	_ = godotenv.Load()
	flag.Parse()

	base := *apiURL
	if base == "" {
		base = os.Getenv("ALBION_API_URL")
	}
	if base == "" {
		base = "http://localhost:8080"
	}

	client := NewClient(base, time.Duration(*timeout)*time.Second)
	filter := Filter{
		Locations: *locations,
		Qualities: *qualities,
		Scale:     *scale,
		Date:      *date,
		EndDate:   *endDate,
	}
	if err := run(os.Stdout, client, *command, *items, filter, *count); err != nil {
		log.Fatalf("market-cli: %v", err)
	}
}

func run(out io.Writer, client *Client, cmd, items string, f Filter, count int) error {
	if cmd != "gold" && items == "" {
		return fmt.Errorf("-items is required for %s", cmd)
	}
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	defer w.Flush()

	switch cmd {
	case "prices":
		rows, err := client.Prices(items, f)
		if err != nil {
			return err
		}
		fmt.Fprintln(w, "ITEM\tCITY\tQUALITY\tSELL MIN\tSELL MAX\tBUY MIN\tBUY MAX")
		for _, p := range rows {
			fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%d\t%d\t%d\n",
				p.ItemTypeID, p.City, p.QualityLevel, p.SellPriceMin, p.SellPriceMax, p.BuyPriceMin, p.BuyPriceMax)
		}
	case "history":
		series, err := client.History(items, f)
		if err != nil {
			return err
		}
		fmt.Fprintln(w, "ITEM\tLOCATION\tQUALITY\tTIMESTAMP\tCOUNT\tAVG")
		for _, s := range series {
			for _, pt := range s.Data {
				fmt.Fprintf(w, "%s\t%s\t%d\t%s\t%d\t%d\n",
					s.ItemTypeID, s.Location, s.QualityLevel, pt.Timestamp, pt.ItemCount, pt.AveragePrice)
			}
		}
	case "gold":
		rows, err := client.Gold(f.Date, count)
		if err != nil {
			return err
		}
		fmt.Fprintln(w, "TIMESTAMP\tPRICE")
		for _, g := range rows {
			fmt.Fprintf(w, "%s\t%d\n", g.Timestamp, g.Price)
		}
	default:
		return fmt.Errorf("unknown command %q", cmd)
	}
	return nil
}
