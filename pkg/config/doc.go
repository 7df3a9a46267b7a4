/*
Package config loads the signalbus daemon configuration from YAML.

Defaults cover a single-process deployment; a config file overrides only
the fields it sets:

	log:
	  level: debug
	  json: false
	bus:
	  workers: 16
	  store_capacity: 10000
	metrics:
	  listen_addr: ":9090"
	cursors:
	  data_dir: /var/lib/signalbus
*/
package config
