package api

import (
	"strconv"

	"github.com/citystrata/citystrata/internal/evacuation"
)

func ftoa(f float64) string { return strconv.FormatFloat(f, 'f', -1, 64) }

func evacuationRequest(evacuate, resources []int, scenario string) evacuation.Request {
	return evacuation.Request{EvacuateAreas: evacuate, ResourceAreas: resources, Scenario: scenario}
}
