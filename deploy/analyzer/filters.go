package main

import (
	"bufio"
	"encoding/csv"
	"errors"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
	"github.com/go-echarts/go-echarts/v2/types"
	pkgerrors "github.com/pkg/errors"

	"github.com/forest33/edsp/business/entity"
	"github.com/forest33/edsp/pkg/filter"
	"github.com/forest33/edsp/pkg/numeric"
	"github.com/forest33/edsp/pkg/structs"
)

// emptyValue gap in an echarts series
const emptyValue = "-"

type filterOptions struct {
	window        int
	cutoffMilliHz uint
	sampleMillis  uint32
	pipeline      []*entity.FilterConfig
}

type point struct {
	timeMs int64
	value  int64
}

type series struct {
	name   string
	values []opts.LineData
}

// readSamples parses "time_ms,value" rows, a non numeric first row is a header
func readSamples(r io.Reader) ([]point, error) {
	cr := csv.NewReader(bufio.NewReader(r))
	cr.FieldsPerRecord = 2
	cr.TrimLeadingSpace = true

	points := make([]point, 0, initialEventsCount)
	for line := 1; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}

		ts, terr := strconv.ParseInt(strings.TrimSpace(rec[0]), 10, 64)
		v, verr := strconv.ParseInt(strings.TrimSpace(rec[1]), 10, 64)
		if terr != nil || verr != nil {
			if line == 1 {
				continue
			}
			return nil, pkgerrors.Errorf("line %d: not an integer sample", line)
		}
		if len(points) > 0 && ts <= points[len(points)-1].timeMs {
			return nil, pkgerrors.Errorf("line %d: time is not increasing", line)
		}

		points = append(points, point{timeMs: ts, value: v})
	}

	if len(points) == 0 {
		return nil, entity.ErrNoData
	}

	return points, nil
}

// runFilters computes one series per filter over points
func runFilters(points []point, o *filterOptions) ([]series, error) {
	cfgs := []filter.Config{
		{Kind: filter.KindMovingMean, Window: o.window},
		{Kind: filter.KindMedian, Window: o.window},
		{Kind: filter.KindLowPass, CutoffMilliHz: uint32(o.cutoffMilliHz), SampleMillis: o.sampleMillis},
		{Kind: filter.KindHighPass, CutoffMilliHz: uint32(o.cutoffMilliHz), SampleMillis: o.sampleMillis},
	}

	out := []series{{name: "raw", values: make([]opts.LineData, 0, len(points))}}
	for _, p := range points {
		out[0].values = append(out[0].values, opts.LineData{Value: p.value})
	}

	for _, c := range cfgs {
		f, err := filter.New(c)
		if err != nil {
			return nil, pkgerrors.Wrapf(err, "filter %s", c.Kind)
		}
		s, err := runChain(c.Kind, filter.Chain{f}, points)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}

	if len(o.pipeline) > 0 {
		chain := make(filter.Chain, 0, len(o.pipeline))
		for _, fc := range o.pipeline {
			f, err := filter.New(filter.Config{
				Kind:          fc.Kind,
				Window:        fc.Window,
				CutoffMilliHz: fc.CutoffMilliHz,
				SampleMillis:  structs.If(fc.SampleMillis != 0, fc.SampleMillis, o.sampleMillis),
			})
			if err != nil {
				return nil, pkgerrors.Wrapf(err, "pipeline filter %s", fc.Kind)
			}
			chain = append(chain, f)
		}
		s, err := runChain("pipeline", chain, points)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}

	d, err := derivative(points)
	if err != nil {
		return nil, err
	}

	return append(out, d), nil
}

func runChain(name string, chain filter.Chain, points []point) (series, error) {
	s := series{name: name, values: make([]opts.LineData, 0, len(points))}
	for _, p := range points {
		v, err := chain.Push(p.value)
		switch {
		case err == nil:
			s.values = append(s.values, opts.LineData{Value: v})
		case errors.Is(err, entity.ErrNeedMoreValues):
			s.values = append(s.values, opts.LineData{Value: emptyValue})
		default:
			return s, pkgerrors.Wrapf(err, "%s at %d ms", name, p.timeMs)
		}
	}
	return s, nil
}

// derivative per second of the raw signal
func derivative(points []point) (series, error) {
	var (
		d    = numeric.NewDerivative()
		s    = series{name: "derivative", values: make([]opts.LineData, 0, len(points))}
		prev = points[0].timeMs
	)

	for _, p := range points {
		elapsed := uint32(max(p.timeMs-prev, 1))
		prev = p.timeMs

		v, err := d.Push(p.value, elapsed)
		switch {
		case err == nil:
			perSecond, err := numeric.MulInt64(v, 1000)
			if err != nil {
				return s, err
			}
			s.values = append(s.values, opts.LineData{Value: perSecond})
		case errors.Is(err, entity.ErrNeedMoreValues):
			s.values = append(s.values, opts.LineData{Value: emptyValue})
		default:
			return s, pkgerrors.Wrapf(err, "derivative at %d ms", p.timeMs)
		}
	}

	return s, nil
}

func chartFilters(inFile, outFile string, o *filterOptions) error {
	f, err := os.Open(inFile)
	if err != nil {
		return err
	}
	defer func() {
		if err := f.Close(); err != nil {
			zlog.Error().Err(err).Msg("failed to close samples file")
		}
	}()

	points, err := readSamples(f)
	if err != nil {
		return err
	}

	all, err := runFilters(points, o)
	if err != nil {
		return err
	}

	times := make([]int64, len(points))
	for i := range points {
		times[i] = points[i].timeMs
	}

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{
			Theme:  types.ThemeWesteros,
			Width:  chartWidth,
			Height: chartHeight,
		}),
		charts.WithTitleOpts(opts.Title{
			Title:    "Filters",
			Subtitle: inFile,
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: true, Trigger: "axis"}),
		charts.WithLegendOpts(opts.Legend{Show: true}),
	)

	line.SetXAxis(times)
	for _, s := range all {
		line.AddSeries(s.name, s.values)
	}
	line.SetSeriesOptions(charts.WithLineChartOpts(opts.LineChart{Smooth: true}))

	fo, err := createOutput(outFile)
	if err != nil {
		return err
	}
	defer func() { _ = fo.Close() }()

	line.PageTitle = "Filters"

	return line.Render(fo)
}
