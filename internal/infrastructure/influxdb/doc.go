// Package influxdb records light telemetry in InfluxDB.
//
// It wraps the official influxdb-client-go v2 library with connection
// management, non-blocking batched writes and health checks, and exposes
// the lanlight measurements:
//
//	light_presence   tags: device_id, label   fields: present (bool)
//	light_power      tags: device_id, label   fields: level (int), on (bool)
//	light_registry   tags: org                fields: lights, groups (int)
//
// Every point also carries the site tag passed to Connect.
//
// # Usage
//
//	client, err := influxdb.Connect(cfg.InfluxDB, cfg.Site.ID)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	lights.AddListener(influxdb.NewLightRecorder(client, lights, groups))
//
// # Thread Safety
//
// All methods are safe for concurrent use. Writes are buffered and flushed
// according to batch_size and flush_interval; async write failures are
// reported through SetOnError.
package influxdb
