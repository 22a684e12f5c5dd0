package main

import (
	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/citystrata/citystrata/internal/model"
)

// exportAnalysis writes a workbook with Summary, Need and Capacity sheets.
func exportAnalysis(a *model.EvacuationAnalysis, path string) error {
	f := xlsx.NewFile()

	summary, err := f.AddSheet("Summary")
	if err != nil {
		return eris.Wrap(err, "export: add summary sheet")
	}
	addRow(summary, "scenario", a.Scenario)
	addRow(summary, "total_need", a.TotalNeed)
	addRow(summary, "total_capacity", a.TotalCapacity)
	addRow(summary, "capacity_deficit", a.CapacityDeficit)
	for _, r := range a.Recommendations {
		addRow(summary, "recommendation", r)
	}

	need, err := f.AddSheet("Need")
	if err != nil {
		return eris.Wrap(err, "export: add need sheet")
	}
	addRow(need, "area_code", "institutions_count", "estimated_children", "estimated_staff", "total_estimated_population")
	for _, n := range a.NeedByArea {
		addRow(need, n.AreaCode, n.InstitutionsCount, n.EstimatedChildren, n.EstimatedStaff, n.TotalEstimatedPopulation)
	}

	capacity, err := f.AddSheet("Capacity")
	if err != nil {
		return eris.Wrap(err, "export: add capacity sheet")
	}
	addRow(capacity, "area_code", "lodging_count", "lodging_capacity", "total_capacity")
	for _, c := range a.CapacityByArea {
		addRow(capacity, c.AreaCode, c.LodgingCount, c.LodgingCapacity, c.TotalCapacity)
	}

	return eris.Wrapf(f.Save(path), "export: save %s", path)
}

func addRow(sheet *xlsx.Sheet, values ...any) {
	row := sheet.AddRow()
	for _, v := range values {
		cell := row.AddCell()
		switch t := v.(type) {
		case int:
			cell.SetInt(t)
		case string:
			cell.SetString(t)
		default:
			cell.SetValue(t)
		}
	}
}
