package opcua

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"fmt"
	"math/big"
	"net"
	"net/url"
	"os"
	"sync"
	"time"

	"github.com/awcullen/opcua/server"
	"github.com/awcullen/opcua/ua"
	"github.com/rs/zerolog/log"

	"github.com/lwagner-iiot/moldpress-monitor/internal/engine"
)

const (
	pkiDir   = "./pki"
	certFile = "./pki/server.crt"
	keyFile  = "./pki/server.key"

	pressNamespace = 2
	pressFolder    = "Press"
)

// nodeDef describes one variable node exposed by the press.
type nodeDef struct {
	Name         string
	DisplayName  string
	Description  string
	DataType     ua.NodeID
	InitialValue interface{}
}

func pressNodes() []nodeDef {
	return []nodeDef{
		{"Temperature", "Temperature", "Process temperature °C", ua.DataTypeIDDouble, 25.0},
		{"PredictedTemperature", "Predicted Temperature", "Model-predicted temperature °C", ua.DataTypeIDDouble, 25.0},
		{"Pressure", "Pressure", "Hydraulic pressure bar", ua.DataTypeIDDouble, 0.0},
		{"Vibration", "Vibration", "Vibration level mm/s", ua.DataTypeIDDouble, 0.0},
		{"Phase", "Phase", "Active cycle phase", ua.DataTypeIDString, "Idle"},
		{"PhaseElapsed", "Phase Elapsed", "Ticks in current phase", ua.DataTypeIDInt32, int32(0)},
		{"HealthIndex", "Health Index", "Weighted health score 0-100", ua.DataTypeIDDouble, 100.0},
		{"OEE", "OEE", "Overall equipment effectiveness %", ua.DataTypeIDDouble, 100.0},
		{"TempDeviation", "Temperature Deviation", "Deviation from target %", ua.DataTypeIDDouble, 0.0},
		{"PressureDeviation", "Pressure Deviation", "Deviation from target %", ua.DataTypeIDDouble, 0.0},
		{"ProcessStatus", "Process Status", "Derived status classification", ua.DataTypeIDString, "healthy"},
		{"TotalCycles", "Total Cycles", "Completed press cycles", ua.DataTypeIDInt32, int32(0)},
		{"RejectCount", "Reject Count", "Scrap parts recorded", ua.DataTypeIDInt32, int32(0)},
		{"LastCycleTicks", "Last Cycle Ticks", "Duration of last completed cycle", ua.DataTypeIDInt32, int32(0)},
		{"Running", "Running", "Tick scheduling active", ua.DataTypeIDBoolean, true},
		{"LastAlertMessage", "Last Alert Message", "Most recent alert text", ua.DataTypeIDString, ""},
		{"LastAlertSeverity", "Last Alert Severity", "Most recent alert severity", ua.DataTypeIDString, ""},
	}
}

// Server wraps the OPC UA server and manages the press variable nodes. When
// the underlying server cannot start, the wrapper degrades to value-storage
// mode so the simulation keeps running.
type Server struct {
	srv  *server.Server
	port int
	name string
	mu   sync.RWMutex

	varNodes map[string]*server.VariableNode
	values   map[string]interface{}
}

// NewServer creates a new OPC UA server wrapper.
func NewServer(port int, monitorName string) *Server {
	return &Server{
		port:     port,
		name:     monitorName,
		varNodes: make(map[string]*server.VariableNode),
		values:   make(map[string]interface{}),
	}
}

// Start starts the OPC UA server. Failures degrade to value-storage mode
// rather than aborting the monitor.
func (s *Server) Start(ctx context.Context) error {
	endpoint := fmt.Sprintf("opc.tcp://0.0.0.0:%d", s.port)

	log.Info().
		Int("port", s.port).
		Str("endpoint", endpoint).
		Msg("Starting OPC UA server")

	if err := ensurePKI(s.name); err != nil {
		log.Warn().Err(err).Msg("Failed to create PKI - OPC UA server disabled")
		return nil
	}

	var srv *server.Server
	func() {
		defer func() {
			if r := recover(); r != nil {
				log.Warn().
					Interface("panic", r).
					Msg("OPC UA server creation panicked - running in value storage mode only")
			}
		}()

		var err error
		srv, err = server.New(
			ua.ApplicationDescription{
				ApplicationURI:  "urn:moldpress-monitor:press",
				ProductURI:      "urn:moldpress-monitor",
				ApplicationName: ua.LocalizedText{Text: "Mold Press Monitor", Locale: "en"},
				ApplicationType: ua.ApplicationTypeServer,
			},
			certFile,
			keyFile,
			endpoint,
			server.WithAnonymousIdentity(true),
			server.WithSecurityPolicyNone(true),
			server.WithInsecureSkipVerify(),
		)
		if err != nil {
			log.Warn().
				Err(err).
				Msg("OPC UA server creation failed - running in value storage mode only")
			srv = nil
		}
	}()

	if srv == nil {
		return nil
	}
	s.srv = srv

	if err := s.createNodes(); err != nil {
		log.Error().Err(err).Msg("Failed to create OPC UA nodes")
		return err
	}

	go func() {
		defer func() {
			if r := recover(); r != nil {
				log.Error().Interface("panic", r).Msg("OPC UA server panic")
			}
		}()
		if err := srv.ListenAndServe(); err != nil {
			log.Error().Err(err).Msg("OPC UA server error")
		}
	}()

	log.Info().Msg("OPC UA server started successfully")
	return nil
}

// Stop stops the OPC UA server.
func (s *Server) Stop(ctx context.Context) error {
	if s.srv != nil {
		return s.srv.Close()
	}
	return nil
}

func (s *Server) createNodes() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	nm := s.srv.NamespaceManager()

	folder := server.NewObjectNode(
		s.srv,
		ua.NodeIDString{NamespaceIndex: pressNamespace, ID: pressFolder},
		ua.QualifiedName{NamespaceIndex: pressNamespace, Name: pressFolder},
		ua.LocalizedText{Text: pressFolder},
		ua.LocalizedText{Text: "Compression Molding Press Data"},
		nil,
		[]ua.Reference{
			{
				ReferenceTypeID: ua.ReferenceTypeIDOrganizes,
				IsInverse:       true,
				TargetID:        ua.ExpandedNodeID{NodeID: ua.ObjectIDObjectsFolder},
			},
		},
		0,
	)
	nm.AddNode(folder)

	for _, nd := range pressNodes() {
		varNode := server.NewVariableNode(
			s.srv,
			ua.NodeIDString{NamespaceIndex: pressNamespace, ID: pressFolder + "." + nd.Name},
			ua.QualifiedName{NamespaceIndex: pressNamespace, Name: nd.Name},
			ua.LocalizedText{Text: nd.DisplayName},
			ua.LocalizedText{Text: nd.Description},
			nil,
			[]ua.Reference{
				{
					ReferenceTypeID: ua.ReferenceTypeIDHasComponent,
					IsInverse:       true,
					TargetID:        ua.ExpandedNodeID{NodeID: ua.NodeIDString{NamespaceIndex: pressNamespace, ID: pressFolder}},
				},
			},
			ua.NewDataValue(nd.InitialValue, 0, time.Now().UTC(), 0, time.Now().UTC(), 0),
			nd.DataType,
			ua.ValueRankScalar,
			[]uint32{},
			ua.AccessLevelsCurrentRead,
			250.0,
			false,
			nil,
		)
		nm.AddNode(varNode)
		s.varNodes[nd.Name] = varNode
		s.values[nd.Name] = nd.InitialValue
	}

	log.Info().Int("count", len(s.varNodes)).Msg("OPC UA nodes registered in address space")
	return nil
}

// UpdateStatus pushes the latest engine status and alert into the address
// space. Called once per tick.
func (s *Server) UpdateStatus(st engine.Status, lastAlertMessage, lastAlertSeverity string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	s.setValue("Temperature", st.Temperature, now)
	s.setValue("PredictedTemperature", st.PredictedTemp, now)
	s.setValue("Pressure", st.Pressure, now)
	s.setValue("Vibration", st.Vibration, now)
	s.setValue("Phase", st.PhaseName, now)
	s.setValue("PhaseElapsed", int32(st.PhaseElapsed), now)
	s.setValue("HealthIndex", st.Health.HealthIndex, now)
	s.setValue("OEE", st.Health.OEE, now)
	s.setValue("TempDeviation", st.Health.TempDeviation, now)
	s.setValue("PressureDeviation", st.Health.PressureDeviation, now)
	s.setValue("ProcessStatus", string(st.Health.Status), now)
	s.setValue("TotalCycles", int32(st.TotalCycles), now)
	s.setValue("RejectCount", int32(st.Rejects), now)
	s.setValue("LastCycleTicks", int32(st.LastCycleTicks), now)
	s.setValue("Running", st.Running, now)
	s.setValue("LastAlertMessage", lastAlertMessage, now)
	s.setValue("LastAlertSeverity", lastAlertSeverity, now)
}

func (s *Server) setValue(name string, value interface{}, timestamp time.Time) {
	s.values[name] = value
	if node, ok := s.varNodes[name]; ok {
		node.SetValue(ua.NewDataValue(value, 0, timestamp, 0, timestamp, 0))
	}
}

// GetValue returns the current stored value of a node.
func (s *Server) GetValue(name string) (interface{}, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.values[name]
	return v, ok
}

// ensurePKI generates a self-signed certificate pair on first start. An
// existing pair is reused across restarts.
func ensurePKI(appName string) error {
	if _, err := os.Stat(certFile); err == nil {
		log.Info().Str("certFile", certFile).Msg("Using existing PKI certificates")
		return nil
	}
	if err := os.MkdirAll(pkiDir, 0o755); err != nil {
		return fmt.Errorf("create pki directory: %w", err)
	}

	log.Info().Msg("Generating self-signed certificate for OPC UA server")

	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		return fmt.Errorf("generate private key: %w", err)
	}
	serial, err := rand.Int(rand.Reader, new(big.Int).Lsh(big.NewInt(1), 128))
	if err != nil {
		return fmt.Errorf("generate serial number: %w", err)
	}

	tmpl := &x509.Certificate{
		SerialNumber: serial,
		Subject: pkix.Name{
			CommonName:   appName,
			Organization: []string{"Mold Press Monitor"},
		},
		NotBefore:             time.Now(),
		NotAfter:              time.Now().Add(365 * 24 * time.Hour),
		KeyUsage:              x509.KeyUsageDigitalSignature | x509.KeyUsageKeyEncipherment,
		ExtKeyUsage:           []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth, x509.ExtKeyUsageClientAuth},
		BasicConstraintsValid: true,
		DNSNames:              []string{"localhost", appName, "moldpress-monitor"},
		IPAddresses:           []net.IP{net.ParseIP("127.0.0.1"), net.ParseIP("0.0.0.0")},
		// The application URI in the certificate must match the
		// ApplicationDescription or clients reject the endpoint.
		URIs: []*url.URL{{Scheme: "urn", Opaque: "moldpress-monitor:press"}},
	}

	der, err := x509.CreateCertificate(rand.Reader, tmpl, tmpl, &key.PublicKey, key)
	if err != nil {
		return fmt.Errorf("create certificate: %w", err)
	}
	if err := writePEM(certFile, "CERTIFICATE", der); err != nil {
		return fmt.Errorf("write certificate: %w", err)
	}
	if err := writePEM(keyFile, "RSA PRIVATE KEY", x509.MarshalPKCS1PrivateKey(key)); err != nil {
		return fmt.Errorf("write private key: %w", err)
	}

	log.Info().Str("certFile", certFile).Str("keyFile", keyFile).Msg("Self-signed certificate generated")
	return nil
}

func writePEM(path, blockType string, der []byte) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return pem.Encode(f, &pem.Block{Type: blockType, Bytes: der})
}
