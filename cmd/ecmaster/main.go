package main

import (
	"flag"
	"fmt"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
	"gopkg.in/ini.v1"

	"github.com/samsamfire/goethercat/master"
	_ "github.com/samsamfire/goethercat/rawsock/linux"
	_ "github.com/samsamfire/goethercat/rawsock/virtual"

	"github.com/samsamfire/goethercat/rawsock"
	"github.com/samsamfire/goethercat/task"

	ethercat "github.com/samsamfire/goethercat"
)

const (
	defaultInterface   = "eth0"
	defaultDeviceKind  = "linux"
	defaultMTU         = 1500
	defaultLogicalBase = 0x10000
	defaultCyclePeriod = time.Millisecond
	defaultMetricsAddr = ":9106"
)

// config holds everything main needs to bring a master up, sourced from
// flags and optionally overlaid from an ini file.
type config struct {
	deviceKind  string
	iface       string
	mtu         int
	logicalBase uint32
	cyclePeriod time.Duration
	metricsAddr string
	srcMAC      [6]byte
}

func loadConfig() (*config, error) {
	iface := flag.String("i", defaultInterface, "network interface")
	kind := flag.String("k", defaultDeviceKind, "rawsock device kind (registered: linux)")
	mtu := flag.Int("mtu", defaultMTU, "interface MTU")
	logicalBase := flag.Uint("base", defaultLogicalBase, "logical process-image base address")
	cyclePeriod := flag.Duration("cycle", defaultCyclePeriod, "control cycle period")
	metricsAddr := flag.String("metrics", defaultMetricsAddr, "prometheus metrics listen address, empty to disable")
	confPath := flag.String("c", "", "optional ini config file overlaying the flags above")
	flag.Parse()

	cfg := &config{
		deviceKind:  *kind,
		iface:       *iface,
		mtu:         *mtu,
		logicalBase: uint32(*logicalBase),
		cyclePeriod: *cyclePeriod,
		metricsAddr: *metricsAddr,
	}

	if *confPath != "" {
		f, err := ini.Load(*confPath)
		if err != nil {
			return nil, fmt.Errorf("load config %s: %w", *confPath, err)
		}
		sec := f.Section("master")
		if v := sec.Key("interface").String(); v != "" {
			cfg.iface = v
		}
		if v := sec.Key("device_kind").String(); v != "" {
			cfg.deviceKind = v
		}
		if v, err := sec.Key("mtu").Int(); err == nil && v != 0 {
			cfg.mtu = v
		}
		if v, err := sec.Key("logical_base").Uint(); err == nil && v != 0 {
			cfg.logicalBase = uint32(v)
		}
		if v, err := sec.Key("cycle_period").Duration(); err == nil && v != 0 {
			cfg.cyclePeriod = v
		}
		if sec.HasKey("metrics_addr") {
			cfg.metricsAddr = sec.Key("metrics_addr").String()
		}
	}

	mac, err := localMAC(cfg.iface)
	if err != nil {
		log.WithError(err).Warn("[MAIN] could not read interface MAC, using a locally-administered placeholder")
		mac = [6]byte{0x02, 0x00, 0x00, 0x00, 0x00, 0x01}
	}
	cfg.srcMAC = mac

	return cfg, nil
}

func localMAC(ifaceName string) ([6]byte, error) {
	var mac [6]byte
	nic, err := net.InterfaceByName(ifaceName)
	if err != nil {
		return mac, err
	}
	if len(nic.HardwareAddr) != 6 {
		return mac, fmt.Errorf("interface %s has no ethernet hardware address", ifaceName)
	}
	copy(mac[:], nic.HardwareAddr)
	return mac, nil
}

func main() {
	log.SetLevel(log.InfoLevel)

	cfg, err := loadConfig()
	if err != nil {
		fmt.Printf("failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	device, err := rawsock.New(cfg.deviceKind, cfg.iface)
	if err != nil {
		fmt.Printf("failed to open device %s/%s: %v\n", cfg.deviceKind, cfg.iface, err)
		os.Exit(1)
	}

	clock := task.ClockFunc(func() ethercat.SystemTime { return ethercat.Now(time.Now()) })
	m := master.New(device, cfg.srcMAC, cfg.mtu, clock)

	log.WithFields(log.Fields{"interface": cfg.iface, "kind": cfg.deviceKind}).Info("[MAIN] bringing up network")
	if err := m.Bringup(cfg.logicalBase, uint32(cfg.cyclePeriod.Nanoseconds())); err != nil {
		fmt.Printf("bringup failed: %v\n", err)
		os.Exit(1)
	}
	log.WithField("slaves", len(m.Slaves())).Info("[MAIN] network operational")

	if cfg.metricsAddr != "" {
		reg := prometheus.NewRegistry()
		reg.MustRegister(m.Metrics())
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
			if err := http.ListenAndServe(cfg.metricsAddr, mux); err != nil {
				log.WithError(err).Warn("[MAIN] metrics server stopped")
			}
		}()
		log.WithField("addr", cfg.metricsAddr).Info("[MAIN] metrics endpoint started")
	}

	ticker := time.NewTicker(cfg.cyclePeriod)
	defer ticker.Stop()

	for range ticker.C {
		m.ProcessOneCycle(ethercat.Now(time.Now()))
	}
}
