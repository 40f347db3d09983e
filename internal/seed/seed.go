package seed

import (
	"gorm.io/gorm"

	"pipeline_tracker/internal/hierarchy"
)

// Zones maps each geopolitical zone to its states.
var Zones = map[string][]string{
	"North Central": {"Benue", "Kogi", "Kwara", "Nasarawa", "Niger", "Plateau", "Abuja"},
	"North East":    {"Adamawa", "Bauchi", "Borno", "Gombe", "Taraba", "Yobe"},
	"North West":    {"Jigawa", "Kaduna", "Kano", "Katsina", "Kebbi", "Sokoto", "Zamfara"},
	"South East":    {"Abia", "Anambra", "Ebonyi", "Enugu", "Imo"},
	"South South":   {"Akwa Ibom", "Bayelsa", "Cross River", "Delta", "Edo", "Rivers"},
	"South West":    {"Ekiti", "Lagos", "Ogun", "Ondo", "Osun", "Oyo"},
}

// Run loads the zone/state dataset, reusing existing rows on rerun.
func Run(db *gorm.DB) error {
	for zoneName, states := range Zones {
		zoneID, err := hierarchy.ResolveOrCreate(db, hierarchy.LevelZone, zoneName, nil)
		if err != nil {
			return err
		}
		for _, stateName := range states {
			if _, err := hierarchy.ResolveOrCreate(db, hierarchy.LevelState, stateName, &zoneID); err != nil {
				return err
			}
		}
	}
	return nil
}
