package main

// LogEntity fields of a client log line
type LogEntity struct {
	Level   string  `json:"level"`
	Layer   string  `json:"layer"`
	ID      uint32  `json:"id"`
	Rtt     int64   `json:"rtt"`
	Srtt    float64 `json:"srtt"`
	Rttvar  float64 `json:"rttvar"`
	Rto     float64 `json:"rto"`
	Time    string  `json:"time"`
	Message string  `json:"message"`
}
