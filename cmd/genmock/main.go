// Command genmock writes synthetic GOES magnetometer monthly files and an
// earthquake catalog into a data directory. The output uses the same file
// names and layouts the loaders expect, so it can drive the pipeline and the
// validate command without the real archives.
//
// Usage:
//
//	go run ./cmd/genmock \
//	  -out data/mock \
//	  -station 8 -start-year 1995 -end-year 1995 \
//	  -step 10m -quakes 200
package main

import (
	"bufio"
	"flag"
	"fmt"
	"log"
	"math"
	"math/rand/v2"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/couchcryptid/quake-mag-etl/internal/adapter/rawfile"
	"github.com/couchcryptid/quake-mag-etl/internal/domain"
)

const catalogName = "centennial_Y2K.csv"

type options struct {
	out       string
	station   int
	startYear int
	endYear   int
	step      time.Duration
	quakes    int
	gapRate   float64
	seed      uint64
}

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	var opts options
	flag.StringVar(&opts.out, "out", "", "output data directory")
	flag.IntVar(&opts.station, "station", 8, "GOES station number used in file names")
	flag.IntVar(&opts.startYear, "start-year", 1995, "first year to generate")
	flag.IntVar(&opts.endYear, "end-year", 1995, "last year to generate")
	flag.DurationVar(&opts.step, "step", time.Minute, "spacing between magnetometer samples")
	flag.IntVar(&opts.quakes, "quakes", 200, "number of catalog rows")
	flag.Float64Var(&opts.gapRate, "gap-rate", 0.01, "fraction of readings replaced by the invalid sentinel")
	flag.Uint64Var(&opts.seed, "seed", 1, "random seed")
	flag.Parse()

	if opts.out == "" {
		flag.Usage()
		return fmt.Errorf("missing required flag: -out")
	}
	if opts.startYear > opts.endYear {
		return fmt.Errorf("start year %d after end year %d", opts.startYear, opts.endYear)
	}
	if opts.step <= 0 {
		return fmt.Errorf("step must be positive, got %s", opts.step)
	}
	if err := os.MkdirAll(opts.out, 0o755); err != nil {
		return err
	}

	rng := rand.New(rand.NewPCG(opts.seed, opts.seed^0x9e3779b97f4a7c15))

	var rows, gaps int
	for year := opts.startYear; year <= opts.endYear; year++ {
		for month := time.January; month <= time.December; month++ {
			name := rawfile.MagnetometerFileName(opts.station, year, month)
			n, g, err := writeMonth(filepath.Join(opts.out, name), year, month, opts, rng)
			if err != nil {
				return fmt.Errorf("writing %s: %w", name, err)
			}
			rows += n
			gaps += g
		}
	}
	log.Printf("magnetometer: %d rows, %d invalid readings", rows, gaps)

	kept, err := writeCatalog(filepath.Join(opts.out, catalogName), opts, rng)
	if err != nil {
		return fmt.Errorf("writing catalog: %w", err)
	}
	log.Printf("catalog: %d rows, %d after year %d", opts.quakes, kept, domain.DefaultQuakeCutoffYear)
	log.Printf("wrote mock data to %s", opts.out)
	return nil
}

// writeMonth writes one GOES-style file: a free-text preamble, the data:
// sentinel, then a CSV body. Field strength follows a daily cycle plus noise.
func writeMonth(path string, year int, month time.Month, opts options, rng *rand.Rand) (rows, gaps int, err error) {
	f, err := os.Create(path)
	if err != nil {
		return 0, 0, err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()

	w := bufio.NewWriter(f)
	fmt.Fprintf(w, ":Product: GOES-%d magnetometer one minute averages\n", opts.station)
	fmt.Fprintln(w, ":Source: synthetic")
	fmt.Fprintln(w, "# Missing data: -99999")
	fmt.Fprintln(w, "data:")
	fmt.Fprintln(w, "time_tag,hp,he,hn,ht")

	start := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 1, 0)
	for ts := start; ts.Before(end); ts = ts.Add(opts.step) {
		phase := 2 * math.Pi * float64(ts.Hour()*60+ts.Minute()) / (24 * 60)
		hp := 90 + 15*math.Sin(phase) + rng.NormFloat64()*2
		he := -40 + 8*math.Cos(phase) + rng.NormFloat64()*2
		hn := 10 + 4*math.Sin(2*phase) + rng.NormFloat64()
		ht := math.Sqrt(hp*hp + he*he + hn*hn)

		values := []float64{hp, he, hn, ht}
		for i := range values {
			if rng.Float64() < opts.gapRate {
				values[i] = domain.InvalidReading
				gaps++
			}
		}

		fmt.Fprint(w, ts.Format(domain.TimeTagLayout))
		for _, v := range values {
			w.WriteByte(',')
			w.WriteString(strconv.FormatFloat(v, 'f', 3, 64))
		}
		w.WriteByte('\n')
		rows++
	}
	return rows, gaps, w.Flush()
}

// writeCatalog writes a centennial-style catalog. Years straddle the cleaning
// cutoff so the filter has something to drop.
func writeCatalog(path string, opts options, rng *rand.Rand) (kept int, err error) {
	f, err := os.Create(path)
	if err != nil {
		return 0, err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()

	w := bufio.NewWriter(f)
	fmt.Fprintln(w, "yr,mon,day,hr,min,sec,lat,long,dep,mag")

	first := min(opts.startYear, domain.DefaultQuakeCutoffYear-5)
	span := opts.endYear - first + 1
	for range opts.quakes {
		year := first + rng.IntN(span)
		month := time.Month(1 + rng.IntN(12))
		day := 1 + rng.IntN(domain.DaysIn(year, month))
		if year > domain.DefaultQuakeCutoffYear {
			kept++
		}
		fmt.Fprintf(w, "%d,%d,%d,%d,%d,%.1f,%.2f,%.2f,%.0f,%.1f\n",
			year, int(month), day, rng.IntN(24), rng.IntN(60), rng.Float64()*59.9,
			rng.Float64()*180-90, rng.Float64()*360-180, rng.Float64()*600,
			5.5+rng.ExpFloat64()*0.6)
	}
	return kept, w.Flush()
}
