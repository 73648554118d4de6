package main

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/panjf2000/ants/v2"
	"github.com/panjf2000/gnet/v2"

	"github.com/aaronwong1989/sigmatcp/codec"
	"github.com/aaronwong1989/sigmatcp/codec/sigma"
	"github.com/aaronwong1989/sigmatcp/comm"
	"github.com/aaronwong1989/sigmatcp/comm/logging"
	"github.com/aaronwong1989/sigmatcp/comm/metrics"
	"github.com/aaronwong1989/sigmatcp/device"
)

type Server struct {
	gnet.BuiltinEventEngine
	engine   gnet.Engine
	protocol string
	address  string
	conf     *Config
	pool     *ants.Pool
	dev      device.Device
	metrics  *metrics.AppMetrics
	seq      codec.Sequence32
	sessions sync.Map // session id -> *session
	active   atomic.Int32
	busy     atomic.Int32 // 正在执行的会话队列数
	booted   chan struct{}
}

func StartServer(cfg *Config) {
	log.Infof("current pid is %s.", comm.SavePid("sigmatcp.pid"))

	dev, err := device.Open(cfg.Device)
	if err != nil {
		log.Errorf("[%-9s] open device %s failed: %v", "Start", cfg.Device.Kind, err)
		return
	}
	reg := metrics.NewRegistry()
	ss, err := NewServer(cfg, dev, metrics.NewAppMetrics(reg))
	if err != nil {
		_ = dev.Close()
		log.Errorf("[%-9s] %v", "Start", err)
		return
	}
	defer ss.pool.Release()

	if cfg.Monitor {
		comm.StartMonitor(cfg.Port, metrics.Handler(reg))
	}

	err = gnet.Run(ss, ss.protocol+"://"+ss.address, gnet.WithMulticore(cfg.Multicore), gnet.WithTicker(true))
	log.Errorf("server(%s://%s) exits with error: %v", ss.protocol, ss.address, err)
}

// NewServer keeps its own copy of cfg; zero values that would stall the
// server are replaced there.
func NewServer(cfg *Config, dev device.Device, m *metrics.AppMetrics) (*Server, error) {
	conf := *cfg
	if conf.MaxPoolSize <= 0 {
		conf.MaxPoolSize = 256
	}
	if conf.MaxFrameLength <= 0 {
		conf.MaxFrameLength = 64 * 1024
	}
	if conf.DeviceTimeout <= 0 {
		conf.DeviceTimeout = 2 * time.Second
	}
	if conf.TickDuration <= 0 {
		conf.TickDuration = time.Minute
	}
	// 定义异步工作Go程池
	options := ants.Options{
		ExpiryDuration: time.Minute, // 1 分钟内不被使用的worker会被清除
		Nonblocking:    false,       // 池满时提交任务阻塞等待
		PreAlloc:       false,
		PanicHandler: func(e interface{}) {
			log.Errorf("%v", e)
		},
	}
	pool, err := ants.NewPool(conf.MaxPoolSize, ants.WithOptions(options))
	if err != nil {
		return nil, fmt.Errorf("create worker pool: %w", err)
	}
	return &Server{
		protocol: "tcp",
		address:  fmt.Sprintf(":%d", conf.Port),
		conf:     &conf,
		pool:     pool,
		dev:      dev,
		metrics:  m,
		seq:      comm.NewCycleSequence(conf.NodeId),
		booted:   make(chan struct{}),
	}, nil
}

func (s *Server) OnBoot(eng gnet.Engine) (action gnet.Action) {
	log.Infof("[%-9s] running server on %s with multi-core=%t", "OnBoot", fmt.Sprintf("%s://%s", s.protocol, s.address), s.conf.Multicore)
	s.engine = eng
	close(s.booted)
	return
}

func (s *Server) OnShutdown(eng gnet.Engine) {
	log.Warnf("[%-9s] shutdown server %s with %d active connections ...", "OnShutdown", fmt.Sprintf("%s://%s", s.protocol, s.address), eng.CountConnections())
	s.closeDevice()
	log.Warnf("[%-9s] shutdown server %s completed!", "OnShutdown", fmt.Sprintf("%s://%s", s.protocol, s.address))
}

func (s *Server) OnOpen(c gnet.Conn) (out []byte, action gnet.Action) {
	if int(s.active.Load()) >= s.conf.MaxCons {
		s.metrics.TCPRejected.Inc()
		log.Warnf("[%-9s] [%v<->%v] FLOW CONTROL：connections threshold reached, closing new connection...", "OnOpen", c.RemoteAddr(), c.LocalAddr())
		return nil, gnet.Close
	}
	sess := newSession(s.seq.NextVal(), c.RemoteAddr().String(), c)
	c.SetContext(sess)
	s.sessions.Store(sess.id, sess)
	s.active.Add(1)
	s.metrics.TCPAccepted.Inc()
	s.metrics.ActiveConns.Inc()
	log.Infof("[%-9s] [%v<->%v] %s opened, activeCons=%d.", "OnOpen", c.RemoteAddr(), c.LocalAddr(), sess, s.active.Load())
	return
}

func (s *Server) OnClose(c gnet.Conn, e error) (action gnet.Action) {
	sess, ok := c.Context().(*session)
	if !ok {
		// 被拒绝的连接没有会话
		return
	}
	sess.close()
	s.sessions.Delete(sess.id)
	s.active.Add(-1)
	s.metrics.ActiveConns.Dec()
	log.Warnf("[%-9s] [%v<->%v] %s closed, activeCons=%d, reason=%v.", "OnClose", c.RemoteAddr(), c.LocalAddr(), sess, s.active.Load(), e)
	return
}

func (s *Server) OnTraffic(c gnet.Conn) (action gnet.Action) {
	sess, ok := c.Context().(*session)
	if !ok {
		return gnet.Close
	}
	buf, _ := c.Peek(c.InboundBuffered())
	if len(buf) == 0 {
		return gnet.None
	}
	if fresh := len(buf) - sess.pending; fresh > 0 {
		s.metrics.TCPBytesReceived.Add(float64(fresh))
	}
	comm.LogHex(logging.DebugLevel, "Inbound", buf)

	cmds, consumed, err := split(buf, s.conf.MaxFrameLength)
	if consumed > 0 {
		_, _ = c.Discard(consumed)
	}
	sess.pending = len(buf) - consumed
	if len(cmds) > 0 {
		s.metrics.ParseTotal.WithLabelValues("ok").Add(float64(len(cmds)))
		s.dispatch(sess, cmds)
	}
	if err != nil {
		s.metrics.ParseTotal.WithLabelValues("error").Inc()
		log.Errorf("[%-9s] [%v<->%v] %s decode error: %v, close session...", "OnTraffic", c.RemoteAddr(), c.LocalAddr(), sess, err)
		return gnet.Close
	}
	if sess.pending > 0 {
		s.metrics.ParseTotal.WithLabelValues("short").Inc()
		log.Debugf("[%-9s] %s waiting for %d more bytes", "OnTraffic", sess, sess.pending)
	}
	return gnet.None
}

func (s *Server) OnTick() (delay time.Duration, action gnet.Action) {
	log.Infof("[%-9s] %d active connections.", "OnTick", s.active.Load())
	return s.conf.TickDuration, gnet.None
}

// closeDevice stops every session queue, waits for the commands already
// running to finish and then closes the device.
func (s *Server) closeDevice() {
	s.sessions.Range(func(key, value interface{}) bool {
		value.(*session).close()
		return true
	})
	deadline := time.Now().Add(s.conf.DeviceTimeout + time.Second)
	for s.busy.Load() > 0 {
		if time.Now().After(deadline) {
			log.Warnf("[%-9s] %d session queues still running, closing device anyway", "OnShutdown", s.busy.Load())
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	// memory 设备在此保存快照
	if err := s.dev.Close(); err != nil {
		log.Errorf("[%-9s] close device: %v", "OnShutdown", err)
	}
}

// dispatch queues cmds on the session and starts a drain task when none runs.
func (s *Server) dispatch(sess *session, cmds []sigma.Command) {
	if !sess.push(cmds) {
		return
	}
	s.busy.Add(1)
	err := s.pool.Submit(func() {
		defer s.busy.Add(-1)
		for {
			cmd, ok := sess.pop()
			if !ok {
				return
			}
			_ = cmd.Accept(&executor{srv: s, sess: sess})
		}
	})
	if err != nil {
		s.busy.Add(-1)
		log.Errorf("[%-9s] %s submit error: %v", "OnTraffic", sess, err)
		sess.close()
	}
}
