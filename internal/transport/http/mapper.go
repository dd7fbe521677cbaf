package http

import (
	"encoding/json"

	"github.com/regatta-live/regata-server/internal/core"
	"github.com/regatta-live/regata-server/internal/proto"
)

func inboundToCommand(inbound proto.Inbound) (*core.Command, *proto.Error, error) {
	switch inbound.Type {
	case proto.InboundTypeSendLocation:
		var loc proto.LocationData
		if err := json.Unmarshal(inbound.Data, &loc); err != nil {
			return nil, nil, err
		}
		return &core.Command{
			Kind: core.CommandSendLocation,
			Location: &core.LocationReport{
				Latitude:   loc.Latitude,
				Longitude:  loc.Longitude,
				Azimuth:    loc.Azimuth,
				Speed:      loc.Speed,
				Pitch:      loc.Pitch,
				Roll:       loc.Roll,
				Timestamp:  loc.Timestamp,
				RaceID:     loc.RaceID,
				VesselName: loc.VesselName,
			},
		}, nil, nil
	case proto.InboundTypeSendBuoys:
		var buoys proto.BuoysData
		if err := json.Unmarshal(inbound.Data, &buoys); err != nil {
			return nil, nil, err
		}
		if len(buoys.Buoys) == 0 {
			return nil, &proto.Error{Code: core.ErrCodeBadRequest, Msg: "buoys are required"}, nil
		}
		return &core.Command{
			Kind:  core.CommandSendBuoys,
			Buoys: buoys.Buoys,
		}, nil, nil
	case proto.InboundTypeBoatFinished:
		var finished proto.BoatFinishedData
		if err := json.Unmarshal(inbound.Data, &finished); err != nil {
			return nil, nil, err
		}
		if finished.VesselName == "" {
			return nil, &proto.Error{Code: core.ErrCodeBadRequest, Msg: "vesselName is required"}, nil
		}
		return &core.Command{
			Kind:       core.CommandBoatFinished,
			VesselName: finished.VesselName,
		}, nil, nil
	default:
		return nil, &proto.Error{Code: "invalid_message", Msg: "unknown message type"}, nil
	}
}

func outboundFromEvent(event *core.Event) proto.Outbound {
	switch event.Kind {
	case core.EventIdentity:
		return proto.Outbound{
			Type:  "event",
			Event: proto.OutboundEventAssignIdentity,
			Data: proto.EventAssignIdentity{
				Name:  event.Identity.Name,
				Color: event.Identity.Color,
			},
		}
	case core.EventLocation:
		loc := event.Location
		return proto.Outbound{
			Type:  "event",
			Event: proto.OutboundEventUpdateLocation,
			Data: proto.EventUpdateLocation{
				ID:        loc.ID,
				Name:      loc.Name,
				Color:     loc.Color,
				Latitude:  loc.Latitude,
				Longitude: loc.Longitude,
				Azimuth:   loc.Azimuth,
				Speed:     loc.Speed,
				Pitch:     loc.Pitch,
				Roll:      loc.Roll,
				Timestamp: loc.Timestamp,
			},
		}
	case core.EventBuoys:
		return proto.Outbound{
			Type:  "event",
			Event: proto.OutboundEventBuoys,
			Data:  proto.EventBuoys{Buoys: event.Buoys},
		}
	case core.EventBoatFinished:
		return proto.Outbound{
			Type:  "event",
			Event: proto.OutboundEventBoatFinished,
			Data:  proto.EventBoatFinished{VesselName: event.VesselName},
		}
	case core.EventError:
		if event.Error == nil {
			return proto.Outbound{Type: "error", Error: &proto.Error{Code: "unknown", Msg: "unknown error"}}
		}
		return proto.Outbound{
			Type:  "error",
			Error: &proto.Error{Code: event.Error.Code, Msg: event.Error.Message},
		}
	default:
		return proto.Outbound{Type: "event"}
	}
}
