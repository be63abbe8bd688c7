package main

import (
	"bufio"
	"encoding/json"
	"os"
	"time"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
	"github.com/go-echarts/go-echarts/v2/types"
)

// chartRTO plots round trips logged by the bridge client
func chartRTO(logFile, outFile string) error {
	f, err := os.Open(logFile)
	if err != nil {
		return err
	}
	defer func() {
		if err := f.Close(); err != nil {
			zlog.Error().Err(err).Msg("failed to close log file")
		}
	}()

	times := make([]time.Time, 0, initialEventsCount)
	rtt := make([]opts.LineData, 0, initialEventsCount)
	rto := make([]opts.LineData, 0, initialEventsCount)
	srtt := make([]opts.LineData, 0, initialEventsCount)
	rttvar := make([]opts.LineData, 0, initialEventsCount)

	scanner := bufio.NewScanner(f)
	scanner.Split(bufio.ScanLines)
	for scanner.Scan() {
		ev := &LogEntity{}
		if err := json.Unmarshal(scanner.Bytes(), ev); err != nil {
			zlog.Error().Err(err).Msg("failed to unmarshal log line")
			continue
		}

		if ev.Layer != "cli" || ev.Message != "frame acknowledged" {
			continue
		}

		t, err := strToDateTime(ev.Time)
		if err != nil {
			zlog.Error().Err(err).Str("time", ev.Time).Msg("failed to parse time from log line")
			continue
		}
		times = append(times, t)

		rtt = append(rtt, opts.LineData{Value: float64(ev.Rtt) / float64(time.Second)})
		srtt = append(srtt, opts.LineData{Value: ev.Srtt / float64(time.Second)})
		rttvar = append(rttvar, opts.LineData{Value: ev.Rttvar / float64(time.Second)})
		rto = append(rto, opts.LineData{Value: ev.Rto})
	}
	if err := scanner.Err(); err != nil {
		return err
	}

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{
			Theme:  types.ThemeWesteros,
			Width:  chartWidth,
			Height: chartHeight,
		}),
		charts.WithTitleOpts(opts.Title{
			Title: "RTT & RTO",
		}),
	)

	line.SetXAxis(times).
		AddSeries("RTT", rtt).
		AddSeries("SRTT", srtt).
		AddSeries("RTTVAR", rttvar).
		AddSeries("RTO", rto).
		SetSeriesOptions(charts.WithLineChartOpts(opts.LineChart{Smooth: true}))

	fo, err := createOutput(outFile)
	if err != nil {
		return err
	}
	defer func() { _ = fo.Close() }()

	line.PageTitle = "RTT & RTO"

	return line.Render(fo)
}
