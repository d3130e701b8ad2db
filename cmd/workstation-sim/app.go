package main

import (
	"fmt"
	"log/slog"

	"workstation-engine/internal/config"
	"workstation-engine/internal/engine"
	"workstation-engine/internal/event"
	"workstation-engine/internal/handlers"
	"workstation-engine/internal/inventory"
	"workstation-engine/internal/persistence"
	"workstation-engine/internal/process"
	"workstation-engine/internal/registry"
	"workstation-engine/internal/resource"
	"workstation-engine/internal/station"
	"workstation-engine/internal/timer"
	"workstation-engine/internal/types"
	"workstation-engine/internal/web"
)

// app 把所有组件组装在一起
type app struct {
	cfg       *config.Config
	logger    *slog.Logger
	inv       *inventory.Memory
	stations  *station.Directory
	factory   *process.Factory
	registry  *registry.Registry
	store     persistence.Store
	bus       *event.Bus
	authority *engine.Authority
	hub       *web.Hub
	tracker   *web.StateTracker
}

func newApp(cfg *config.Config, logger *slog.Logger) (*app, error) {
	a := &app{cfg: cfg, logger: logger}

	a.inv = inventory.NewMemory(cfg.Inventory.MaxStack, cfg.Inventory.MaxVolume)
	a.factory = process.NewFactory(process.Env{
		Items:      a.inv,
		Fluids:     a.inv,
		KnownFluid: cfg.KnownFluid(),
		Logger:     logger.With("component", "process"),
	})
	a.registry = registry.New(a.factory, registry.NewDirSource(cfg.TemplateDirs...), logger)

	a.stations = station.NewDirectory()
	for _, wc := range cfg.Workstations {
		if err := a.stations.Add(wc.Workstation()); err != nil {
			return nil, err
		}
	}

	store, err := persistence.Open(cfg.Store.Driver, cfg.Store.Path)
	if err != nil {
		return nil, fmt.Errorf("无法初始化存储: %w", err)
	}
	a.store = store

	a.bus = event.NewBus()
	a.hub = web.NewHub(logger)
	a.tracker = web.NewStateTracker(a.hub)
	handlers.RegisterEventHandlers(a.bus, a.tracker, a.inv, logger)

	a.authority = engine.NewAuthority(a.registry, a.stations, timer.SystemClock{}, a.store, a.bus, logger)
	a.authority.SetRevivalInterval(cfg.RevivalInterval)

	a.inv.SetItemValidator(a.authority.ValidateItemInsertion)
	a.inv.SetFluidValidator(a.authority.ValidateFluidInsertion)
	a.inv.OnChange(a.authority.NotifyStateChanged)
	return a, nil
}

// seed 放入配置中的初始物品和流体，以工作站自身为操作者，不经过插入校验
func (a *app) seed() {
	for _, wc := range a.cfg.Workstations {
		ws := types.WorkstationID(wc.ID)
		actor := ws.Actor()
		for _, it := range wc.Items {
			if !a.inv.GiveItem(ws, actor, resource.Stack{Kind: it.Kind, Count: it.Count}, []int{it.Slot}) {
				a.logger.Warn("初始物品放入失败", "workstation", ws, "slot", it.Slot, "kind", it.Kind)
			}
		}
		for _, fl := range wc.Fluids {
			if !a.inv.AddFluid(ws, actor, resource.Fluid{Kind: fl.Kind, Volume: fl.Volume}, []int{fl.Slot}) {
				a.logger.Warn("初始流体注入失败", "workstation", ws, "slot", fl.Slot, "kind", fl.Kind)
			}
		}
		a.tracker.AddWorkstation(ws)
		a.tracker.UpdateInventory(ws, a.inv)
	}
}

func (a *app) close() {
	a.bus.Wait()
	if err := a.store.Close(); err != nil {
		a.logger.Error("关闭存储失败", "error", err)
	}
}
