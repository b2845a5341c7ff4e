package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"math"
	"math/rand"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"liyu1981.xyz/greenhouse-telemetry/pkg/channel"
	"liyu1981.xyz/greenhouse-telemetry/pkg/common"
	iotGrpc "liyu1981.xyz/greenhouse-telemetry/pkg/grpc"
	"liyu1981.xyz/greenhouse-telemetry/pkg/payload"
)

var maxDevices int = 500
var reportsPerDevice int = 3
var httpHostPort string = "127.0.0.1:1080"
var grpcHostPort string = "127.0.0.1:10801"

var locationNames = []string{"bedA", "bedB", "tomatoes", "herbs"}

var grpcClient iotGrpc.IngestServiceClient
var cipher *channel.Cipher

var rndMu sync.Mutex
var rnd *rand.Rand = rand.New(rand.NewSource(time.Now().UnixNano()))

var accepted, limited, failed atomic.Int64

func main() {
	_ = godotenv.Load()
	v := viper.New()
	v.AutomaticEnv()

	key, err := channel.ParseKey(v.GetString(common.EnvKeyIOTAESKey))
	if err != nil {
		log.Fatal("Invalid IOT_AES_KEY: ", err)
	}
	if cipher, err = channel.New(key); err != nil {
		log.Fatal(err)
	}

	deviceNames := make([]string, maxDevices)
	for i := range maxDevices {
		deviceNames[i] = "sim-" + uuid.NewString()[:8]
	}
	fmt.Printf("generated %v device names\n", maxDevices)

	resp, err := http.Get(fmt.Sprintf("http://%s/healthz", httpHostPort))
	if err != nil {
		log.Fatal("Failed to connect to HTTP server:", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		log.Fatal("HTTP server not available")
	}
	fmt.Printf("http server verified\n")

	conn, err := grpc.NewClient(grpcHostPort, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		log.Fatal("Failed to connect to gRPC server:", err)
	}
	defer conn.Close()
	grpcClient = iotGrpc.NewIngestServiceClient(conn)

	startTime := time.Now()
	wg := sync.WaitGroup{}
	for i := range maxDevices {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range reportsPerDevice {
				sendReport(deviceNames[i])
				time.Sleep(time.Duration(100+randInt(1000)) * time.Millisecond)
			}
		}()
	}
	wg.Wait()
	usedTime := time.Since(startTime)

	total := maxDevices * reportsPerDevice
	fmt.Printf(
		"\rsent %v reports from %v devices: used time=%v seconds, throughput=%v reports/second\n",
		total, maxDevices, usedTime.Seconds(), float64(total)/usedTime.Seconds(),
	)
	fmt.Printf("accepted=%v rate_limited=%v failed=%v\n", accepted.Load(), limited.Load(), failed.Load())
}

func randInt(n int) int {
	rndMu.Lock()
	defer rndMu.Unlock()
	return rnd.Intn(n)
}

func flipCoin() bool {
	return randInt(2) == 0
}

func rndFloat64(min, max float64, decimal int) float64 {
	rndMu.Lock()
	val := min + rnd.Float64()*(max-min)
	rndMu.Unlock()
	multiplier := math.Pow10(decimal)
	return math.Round(val*multiplier) / multiplier
}

func newReport(deviceName string) *payload.Report {
	report := payload.NewReport(deviceName, time.Now(), rndFloat64(5, 40, 1), rndFloat64(20, 95, 1))
	for _, name := range locationNames[:1+randInt(len(locationNames))] {
		soil := rndFloat64(0, 100, 1)
		report.WithLocation(name, &soil)
	}
	if flipCoin() {
		water := rndFloat64(0, 100, 1)
		report.WaterLevel = &water
	}
	return report
}

func sendReport(deviceName string) {
	plaintext, err := json.Marshal(newReport(deviceName))
	if err != nil {
		panic(err)
	}
	wire, err := cipher.Encrypt(plaintext)
	if err != nil {
		panic(err)
	}

	var ack string
	if flipCoin() {
		ack, err = sendHTTP(wire)
	} else {
		ack, err = sendGRPC(wire)
	}
	if err != nil {
		fmt.Printf("\nerror: %v\n", err)
		return
	}

	if _, err := cipher.Decrypt(ack); err != nil {
		failed.Add(1)
		fmt.Printf("\nack for %v did not decrypt: %v\n", deviceName, err)
		return
	}
	accepted.Add(1)
	fmt.Printf("\raccepted report for device %v", deviceName)
}

func sendHTTP(wire string) (string, error) {
	body, _ := json.Marshal(map[string]string{"encrypted": wire})
	resp, err := http.Post(fmt.Sprintf("http://%s/api/readings", httpHostPort), "application/json", bytes.NewBuffer(body))
	if err != nil {
		failed.Add(1)
		return "", err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusCreated:
	case http.StatusTooManyRequests:
		limited.Add(1)
		return "", fmt.Errorf("rate limited")
	default:
		failed.Add(1)
		return "", fmt.Errorf("response status code = %v", resp.StatusCode)
	}

	var out struct {
		Encrypted string `json:"encrypted"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		failed.Add(1)
		return "", err
	}
	return out.Encrypted, nil
}

func sendGRPC(wire string) (string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	resp, err := grpcClient.PostReadings(ctx, wrapperspb.String(wire))
	if err != nil {
		if status.Code(err) == codes.ResourceExhausted {
			limited.Add(1)
		} else {
			failed.Add(1)
		}
		return "", err
	}
	return resp.GetValue(), nil
}
