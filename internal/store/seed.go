package store

import (
	"context"
	"fmt"
	"time"

	"gearguard-backend/internal/model"
)

type demoTeam struct {
	name    string
	members []string
}

type demoEquipment struct {
	name, serial, department, location, category string
	status                                       model.EquipmentStatus
	purchased                                    string
	team                                         string
}

type demoRequest struct {
	subject     string
	serial      string
	typ         model.RequestType
	status      model.RequestStatus
	priority    model.RequestPriority
	description string
	requestedBy string
	// scheduleInDays is relative to the seed time; nil leaves the date unset.
	scheduleInDays *int
}

func days(n int) *int { return &n }

var demoTeams = []demoTeam{
	{"Mechanics", []string{"Mike Ross", "Harvey Specter", "Robert Zane"}},
	{"Electrical", []string{"Louis Litt", "Donna Paulsen", "Katrina Bennett"}},
	{"IT Support", []string{"Rachel Zane", "Harold Gunderson"}},
	{"Facilities", []string{"Jessica Pearson", "Daniel Hardman"}},
	{"Safety Crew", []string{"Sheila Sazs", "Oliver Grady"}},
}

var demoEquipmentList = []demoEquipment{
	{"CNC Milling Machine", "CNC-2024-001", "Production", "Factory Floor 1", "Heavy Machinery", model.EquipmentActive, "2023-01-15", "Mechanics"},
	{"Hydraulic Press", "HYD-5544", "Production", "Factory Floor 2", "Heavy Machinery", model.EquipmentMaintenance, "2022-11-20", "Mechanics"},
	{"Industrial Lathe", "LAT-3030", "Production", "Workshop A", "Machinery", model.EquipmentActive, "2021-06-10", "Mechanics"},
	{"Conveyor Belt System", "CBS-1122", "Logistics", "Warehouse 1", "Logistics", model.EquipmentActive, "2020-09-05", "Mechanics"},
	{"Main Switchboard", "ELEC-MAIN-01", "Facilities", "Basement", "Electrical", model.EquipmentActive, "2020-03-15", "Electrical"},
	{"Backup Generator", "GEN-5000", "Facilities", "Power Room", "Electrical", model.EquipmentActive, "2019-12-12", "Electrical"},
	{"HVAC Control Unit", "HVAC-2233", "Facilities", "Roof", "HVAC", model.EquipmentMaintenance, "2021-08-20", "Electrical"},
	{"Office Printer X1", "PRT-9988", "Admin", "Office 202", "Office Electronics", model.EquipmentActive, "2024-05-10", "IT Support"},
	{"Server Rack A", "SRV-001", "IT", "Server Room", "Computing", model.EquipmentActive, "2022-02-28", "IT Support"},
	{"Conference Projector", "PROJ-4K", "Admin", "Conf Room B", "AV Equipment", model.EquipmentScrap, "2018-07-15", "IT Support"},
	{"Forklift Model Z", "FL-9900", "Logistics", "Warehouse 2", "Vehicle", model.EquipmentActive, "2023-11-01", "Facilities"},
	{"Water Pump System", "WPS-2211", "Facilities", "Pump Room", "Plumbing", model.EquipmentActive, "2021-04-18", "Facilities"},
	{"Fire Alarm System", "FAS-777", "Security", "Building Wide", "Safety", model.EquipmentActive, "2020-01-01", "Safety Crew"},
	{"Automated Defibrillator", "AED-005", "HR", "Lobby", "Medical", model.EquipmentActive, "2023-06-30", "Safety Crew"},
	{"Security Camera Hub", "CAM-hub-01", "Security", "Security Room", "Security", model.EquipmentActive, "2022-05-15", "Safety Crew"},
}

var demoRequests = []demoRequest{
	{"Hydraulic Leak Fix", "HYD-5544", model.RequestCorrective, model.StatusInProgress, model.PriorityHigh, "Oil leaking from main cylinder seal", "John Doe", nil},
	{"Routine Oil Change", "CNC-2024-001", model.RequestPreventive, model.StatusNew, model.PriorityMedium, "Standard 500h maintenance", "System", days(5)},
	{"Toner Replacement", "PRT-9988", model.RequestCorrective, model.StatusNew, model.PriorityLow, "Black toner low", "Admin Assistant", nil},
	{"Filter Cleaning", "HVAC-2233", model.RequestPreventive, model.StatusNew, model.PriorityMedium, "Clean intake filters", "System", days(2)},
	{"Firmware Upgrade", "SRV-001", model.RequestPreventive, model.StatusRepaired, model.PriorityHigh, "Security patch v2.1", "IT Manager", days(-10)},
	{"Brake Inspection", "FL-9900", model.RequestPreventive, model.StatusInProgress, model.PriorityCritical, "Annual safety check", "Safety Officer", days(0)},
	{"Sensor Calibration", "FAS-777", model.RequestPreventive, model.StatusNew, model.PriorityCritical, "Drift detected in zone 4", "System", days(1)},
	{"Projector Bulb Dead", "PROJ-4K", model.RequestCorrective, model.StatusScrap, model.PriorityLow, "Bulb exploded, unit old", "Meeting Org", nil},
	{"Generator Test Run", "GEN-5000", model.RequestPreventive, model.StatusNew, model.PriorityHigh, "Monthly load test", "Facilities Mgr", days(14)},
}

// SeedSummary reports how many records Seed inserted.
type SeedSummary struct {
	Teams     int
	Equipment int
	Requests  int
}

// Seed inserts the demo fleet through s. Records get creation times one
// minute apart ending at the seed time, so listings keep a stable order.
func Seed(ctx context.Context, s Store) (SeedSummary, error) {
	var sum SeedSummary
	at := now()
	total := len(demoTeams) + len(demoEquipmentList) + len(demoRequests)
	seq := 0
	nextStamp := func() time.Time {
		seq++
		return at.Add(-time.Duration(total-seq) * time.Minute)
	}

	teamIDs := make(map[string]string, len(demoTeams))
	for _, dt := range demoTeams {
		t, err := s.CreateTeam(ctx, model.Team{
			Name:      dt.name,
			Members:   append(model.StringList{}, dt.members...),
			CreatedAt: nextStamp(),
		})
		if err != nil {
			return sum, fmt.Errorf("seed team %q: %w", dt.name, err)
		}
		teamIDs[dt.name] = t.ID
		sum.Teams++
	}

	equipment := make(map[string]*model.Equipment, len(demoEquipmentList))
	for _, de := range demoEquipmentList {
		purchased, err := time.Parse("2006-01-02", de.purchased)
		if err != nil {
			return sum, fmt.Errorf("seed equipment %q: %w", de.serial, err)
		}
		e, err := s.CreateEquipment(ctx, model.Equipment{
			Name:            de.name,
			SerialNumber:    de.serial,
			Department:      de.department,
			Location:        de.location,
			Status:          de.status,
			Category:        de.category,
			PurchaseDate:    purchased,
			MaintenanceTeam: teamIDs[de.team],
			CreatedAt:       nextStamp(),
		})
		if err != nil {
			return sum, fmt.Errorf("seed equipment %q: %w", de.serial, err)
		}
		equipment[de.serial] = e
		sum.Equipment++
	}

	for _, dr := range demoRequests {
		e := equipment[dr.serial]
		r := model.Request{
			Subject:         dr.subject,
			Equipment:       e.ID,
			Type:            dr.typ,
			Status:          dr.status,
			Priority:        dr.priority,
			Description:     dr.description,
			RequestedBy:     dr.requestedBy,
			MaintenanceTeam: e.MaintenanceTeam,
			CreatedAt:       nextStamp(),
		}
		if dr.scheduleInDays != nil {
			d := at.AddDate(0, 0, *dr.scheduleInDays)
			r.ScheduledDate = &d
		}
		if _, err := s.CreateRequest(ctx, r); err != nil {
			return sum, fmt.Errorf("seed request %q: %w", dr.subject, err)
		}
		sum.Requests++
	}
	return sum, nil
}

// Clear deletes every team, equipment item and request in s. Identities are
// kept; the directory regenerates missing ones on the next read.
func Clear(ctx context.Context, s Store) error {
	requests, err := s.ListRequests(ctx, RequestFilter{})
	if err != nil {
		return err
	}
	for _, r := range requests {
		if err := s.DeleteRequest(ctx, r.ID); err != nil {
			return err
		}
	}
	equipment, err := s.ListEquipment(ctx, EquipmentFilter{})
	if err != nil {
		return err
	}
	for _, e := range equipment {
		if err := s.DeleteEquipment(ctx, e.ID); err != nil {
			return err
		}
	}
	teams, err := s.ListTeams(ctx)
	if err != nil {
		return err
	}
	for _, t := range teams {
		if err := s.DeleteTeam(ctx, t.ID); err != nil {
			return err
		}
	}
	return nil
}
