// Command respcli sends one Redis command over a resp.Client and prints the
// reply. It exists to exercise the client session end-to-end against a real
// server outside of the test suite.
package main

import (
	"fmt"
	"net"
	"os"

	"github.com/spf13/cobra"
	"github.com/tidwall/gjson"

	"github.com/kynetiq/resp"
)

var (
	flagAddr    string
	flagNetwork string
	flagHello3  bool
	flagJSON    bool
	flagQuery   string
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "respcli COMMAND [arg...]",
		Short: "Send one Redis command and print the decoded reply",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runSend,
	}

	flags := root.Flags()
	flags.StringVar(&flagAddr, "addr", "", "address to dial (overrides REDIS_ADDR)")
	flags.StringVar(&flagNetwork, "network", "", "network to dial (overrides REDIS_NETWORK)")
	flags.BoolVar(&flagHello3, "hello3", false, "send HELLO 3 before the command")
	flags.BoolVar(&flagJSON, "json", false, "print the reply flattened to JSON")
	flags.StringVar(&flagQuery, "query", "", "gjson path to filter --json output by")

	return root
}

func runSend(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	conf, err := loadConfig(ctx)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if flagAddr != "" {
		conf.Addr = flagAddr
	}
	if flagNetwork != "" {
		conf.Network = flagNetwork
	}
	if flagHello3 {
		conf.Hello3 = true
	}

	conn, err := net.Dial(conf.Network, conf.Addr)
	if err != nil {
		return fmt.Errorf("dialing %s %s: %w", conf.Network, conf.Addr, err)
	}

	var opts []resp.ClientOpt
	if conf.Hello3 {
		opts = append(opts, resp.WithHello3())
	}
	client, err := resp.NewClient(conn, opts...)
	if err != nil {
		return fmt.Errorf("opening client: %w", err)
	}
	defer client.Close()

	name := args[0]
	cmdArgs := make([]resp.Arg, 0, len(args)-1)
	for _, a := range args[1:] {
		cmdArgs = append(cmdArgs, resp.StrArg(a))
	}

	alloc := resp.NewAllocator()
	var reply resp.DynamicReply
	if err := client.SendAlloc(alloc, &reply, name, cmdArgs...); err != nil {
		return err
	}
	defer resp.FreeReply(&reply, alloc)

	return printReply(reply)
}

func printReply(reply resp.DynamicReply) error {
	if !flagJSON {
		fmt.Println(describeReply(reply))
		return nil
	}

	doc, err := dynamicReplyJSON(reply)
	if err != nil {
		return fmt.Errorf("flattening reply to JSON: %w", err)
	}
	if flagQuery != "" {
		doc = []byte(gjson.GetBytes(doc, flagQuery).Raw)
	}
	fmt.Println(string(doc))
	return nil
}

func describeReply(d resp.DynamicReply) string {
	switch d.Kind {
	case resp.ReplyNil:
		return "(nil)"
	case resp.ReplyBool:
		return fmt.Sprintf("%v", d.Bool)
	case resp.ReplyNumber:
		return fmt.Sprintf("%d", d.Number)
	case resp.ReplyDouble:
		return fmt.Sprintf("%v", d.Double)
	case resp.ReplyBigNumber:
		return string(d.BigNumber)
	case resp.ReplyString:
		return string(d.Str)
	case resp.ReplyList, resp.ReplySet:
		elems := d.List
		if d.Kind == resp.ReplySet {
			elems = d.Set
		}
		out := ""
		for i, e := range elems {
			if i > 0 {
				out += ", "
			}
			out += describeReply(e)
		}
		return "[" + out + "]"
	case resp.ReplyMap:
		out := ""
		for i, kv := range d.Map {
			if i > 0 {
				out += ", "
			}
			out += describeReply(kv.Key) + "=>" + describeReply(kv.Value)
		}
		return "{" + out + "}"
	case resp.ReplyErr:
		return d.ErrCode + " " + d.ErrMsg
	default:
		return "?"
	}
}
