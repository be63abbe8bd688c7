// Package main renders charts of sample captures and client round trips
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/forest33/edsp/business/entity"
	"github.com/forest33/edsp/pkg/config"
	"github.com/forest33/edsp/pkg/logger"
	"github.com/forest33/edsp/pkg/structs"
)

var (
	cfg      = &entity.BridgeConfig{}
	zlog     *logger.Logger
	inFile   *string
	outFile  *string
	testType *string
	opt      = &filterOptions{}
)

const (
	defaultConfigFile  = "../../config/edsp-bridge.yaml"
	initialEventsCount = 100000
	chartWidth         = "2500px"
	chartHeight        = "1000px"
)

func setup() {
	configPath := flag.String("config", defaultConfigFile, "path to bridge configuration file")
	inFile = flag.String("in", "", "analyzed file, samples CSV or client log")
	outFile = flag.String("out-file", "", "result file")
	testType = flag.String("test", "filters", "type of chart (filters, rto)")
	flag.IntVar(&opt.window, "window", 5, "moving mean and median window")
	flag.UintVar(&opt.cutoffMilliHz, "cutoff", 1000, "low-pass and high-pass cutoff frequency, mHz")
	flag.Parse()

	if _, err := config.New(filepath.Base(*configPath), filepath.Dir(*configPath), cfg); err != nil {
		log.Fatalf("failed to parse config file: %v", err)
	}

	zlog = logger.New(logger.Config{
		Level:             cfg.Logger.Level,
		TimeFieldFormat:   cfg.Logger.TimeFieldFormat,
		PrettyPrint:       *cfg.Logger.PrettyPrint,
		DisableSampling:   *cfg.Logger.DisableSampling,
		RedirectStdLogger: *cfg.Logger.RedirectStdLogger,
		ErrorStack:        *cfg.Logger.ErrorStack,
		ShowCaller:        *cfg.Logger.ShowCaller,
	})

	opt.sampleMillis = cfg.Samples.SampleMillis
	opt.pipeline = cfg.Samples.Filters
}

func main() {
	setup()

	if *inFile == "" {
		zlog.Fatalf("no input file")
	}

	if *outFile == "" {
		dir, file := path.Split(*inFile)
		outFile = structs.Ref(fmt.Sprintf("%s%s-%s.html", dir, strings.TrimSuffix(file, filepath.Ext(file)), *testType))
	}

	var err error
	switch *testType {
	case "filters":
		err = chartFilters(*inFile, *outFile, opt)
	case "rto":
		err = chartRTO(*inFile, *outFile)
	default:
		err = fmt.Errorf("unknown chart type %s", *testType)
	}
	if err != nil {
		zlog.Fatalf("failed to generate chart: %v", err)
	}

	zlog.Info().Str("file", *outFile).Msg("chart generated")
}

func strToDateTime(input string) (time.Time, error) {
	return time.Parse(cfg.Logger.TimeFieldFormat, input)
}

func createOutput(name string) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(name), 0o755); err != nil {
		return nil, err
	}
	return os.Create(name)
}
