// Command matchcore-client is a small CLI against a running
// matchcore-server's gRPC surface: submit orders and query book state,
// recent trades, and liveness.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"matchcore/rpc"
)

func main() {
	var addr string

	root := &cobra.Command{
		Use:   "matchcore-client",
		Short: "CLI client for a running matchcore-server",
	}
	root.PersistentFlags().StringVar(&addr, "addr", "127.0.0.1:50051", "matchcore-server gRPC address")

	root.AddCommand(submitCmd(&addr), topCmd(&addr), depthCmd(&addr), tradesCmd(&addr), healthCmd(&addr))

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func dial(addr string) (*rpc.Client, *grpc.ClientConn, error) {
	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, nil, fmt.Errorf("dial %s: %w", addr, err)
	}
	return rpc.NewClient(conn), conn, nil
}

func submitCmd(addr *string) *cobra.Command {
	var symbol, side, price, qty, clientOrderID string
	cmd := &cobra.Command{
		Use:   "submit",
		Short: "Submit an order",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, conn, err := dial(*addr)
			if err != nil {
				return err
			}
			defer conn.Close()

			resp, err := c.SubmitOrder(context.Background(), &rpc.SubmitOrderRequest{
				Symbol: symbol, Side: side, Price: price, Qty: qty, ClientOrderID: clientOrderID,
			})
			if err != nil {
				return err
			}
			fmt.Printf("accepted_seq=%s fills=%d\n", resp.AcceptedSeq, len(resp.Fills))
			for _, f := range resp.Fills {
				fmt.Printf("  fill maker_seq=%s taker_seq=%s price=%s qty=%s\n", f.MakerSeq, f.TakerSeq, f.Price, f.Qty)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&symbol, "symbol", "", "symbol (required)")
	cmd.Flags().StringVar(&side, "side", "", "BUY or SELL (required)")
	cmd.Flags().StringVar(&price, "price", "", "limit price (required)")
	cmd.Flags().StringVar(&qty, "qty", "", "quantity (required)")
	cmd.Flags().StringVar(&clientOrderID, "client-order-id", "", "caller-supplied order id")
	cmd.MarkFlagRequired("symbol")
	cmd.MarkFlagRequired("side")
	cmd.MarkFlagRequired("price")
	cmd.MarkFlagRequired("qty")
	return cmd
}

func topCmd(addr *string) *cobra.Command {
	var symbol string
	cmd := &cobra.Command{
		Use:   "top",
		Short: "Show top of book for a symbol",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, conn, err := dial(*addr)
			if err != nil {
				return err
			}
			defer conn.Close()

			resp, err := c.GetTopOfBook(context.Background(), &rpc.GetTopOfBookRequest{Symbol: symbol})
			if err != nil {
				return err
			}
			fmt.Printf("bid %s @ %s | ask %s @ %s\n", resp.BestBidQty, resp.BestBidPrice, resp.BestAskQty, resp.BestAskPrice)
			return nil
		},
	}
	cmd.Flags().StringVar(&symbol, "symbol", "", "symbol (required)")
	cmd.MarkFlagRequired("symbol")
	return cmd
}

func depthCmd(addr *string) *cobra.Command {
	var symbol string
	var levels int32
	cmd := &cobra.Command{
		Use:   "depth",
		Short: "Show aggregated book depth for a symbol",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, conn, err := dial(*addr)
			if err != nil {
				return err
			}
			defer conn.Close()

			resp, err := c.GetBookDepth(context.Background(), &rpc.GetBookDepthRequest{Symbol: symbol, Levels: levels})
			if err != nil {
				return err
			}
			fmt.Println("asks:")
			for i := len(resp.Asks) - 1; i >= 0; i-- {
				fmt.Printf("  %s @ %s\n", resp.Asks[i].Qty, resp.Asks[i].Price)
			}
			fmt.Println("bids:")
			for _, l := range resp.Bids {
				fmt.Printf("  %s @ %s\n", l.Qty, l.Price)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&symbol, "symbol", "", "symbol (required)")
	cmd.Flags().Int32Var(&levels, "levels", 5, "number of price levels per side")
	cmd.MarkFlagRequired("symbol")
	return cmd
}

func tradesCmd(addr *string) *cobra.Command {
	var symbol, after string
	var limit int32
	cmd := &cobra.Command{
		Use:   "trades",
		Short: "Show recent trades for a symbol",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, conn, err := dial(*addr)
			if err != nil {
				return err
			}
			defer conn.Close()

			resp, err := c.GetRecentTrades(context.Background(), &rpc.GetRecentTradesRequest{
				Symbol: symbol, AfterTradeID: after, Limit: limit,
			})
			if err != nil {
				return err
			}
			for _, t := range resp.Trades {
				fmt.Printf("trade_id=%s price=%s qty=%s maker_seq=%s taker_seq=%s taker_side=%s ts_ms=%d\n",
					t.TradeID, t.Price, t.Qty, t.MakerSeq, t.TakerSeq, t.TakerSide, t.TsMs)
			}
			fmt.Printf("last_trade_id=%s\n", resp.LastTradeID)
			return nil
		},
	}
	cmd.Flags().StringVar(&symbol, "symbol", "", "symbol (required)")
	cmd.Flags().StringVar(&after, "after", "", "return trades with trade_id greater than this cursor")
	cmd.Flags().Int32Var(&limit, "limit", 50, "max trades to return")
	cmd.MarkFlagRequired("symbol")
	return cmd
}

func healthCmd(addr *string) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check server liveness",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, conn, err := dial(*addr)
			if err != nil {
				return err
			}
			defer conn.Close()

			resp, err := c.Health(context.Background(), &rpc.HealthRequest{})
			if err != nil {
				return err
			}
			fmt.Println(resp.Status)
			return nil
		},
	}
}
