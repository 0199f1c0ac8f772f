package metricskey

import "github.com/effective-security/metrics"

// Stats
var (
	// StatsLLMMessagesSent is base for counter metric for total messages sent to LLM
	StatsLLMMessagesSent = metrics.Describe{
		Type:         metrics.TypeCounter,
		Name:         "stats_llm_messages_sent",
		Help:         "stats_llm_messages_sent provides total messages sent to LLM",
		RequiredTags: []string{"agent", "model"},
	}

	StatsLLMCallsFailed = metrics.Describe{
		Type:         metrics.TypeCounter,
		Name:         "stats_llm_calls_failed",
		Help:         "stats_llm_calls_failed provides total failed completion requests",
		RequiredTags: []string{"agent", "model"},
	}

	StatsLLMInputTokens = metrics.Describe{
		Type:         metrics.TypeCounter,
		Name:         "stats_llm_input_tokens",
		Help:         "stats_llm_input_tokens provides total input tokens sent to LLM",
		RequiredTags: []string{"agent", "model"},
	}

	StatsLLMOutputTokens = metrics.Describe{
		Type:         metrics.TypeCounter,
		Name:         "stats_llm_output_tokens",
		Help:         "stats_llm_output_tokens provides total output tokens received from LLM",
		RequiredTags: []string{"agent", "model"},
	}

	StatsLLMTotalTokens = metrics.Describe{
		Type:         metrics.TypeCounter,
		Name:         "stats_llm_total_tokens",
		Help:         "stats_llm_total_tokens provides total tokens sent and received from LLM",
		RequiredTags: []string{"agent", "model"},
	}

	StatsChatCallsSucceeded = metrics.Describe{
		Type:         metrics.TypeCounter,
		Name:         "stats_chat_calls_succeeded",
		Help:         "stats_chat_calls_succeeded provides total orchestration calls that reached DONE",
		RequiredTags: []string{"agent"},
	}

	StatsChatCallsFailed = metrics.Describe{
		Type:         metrics.TypeCounter,
		Name:         "stats_chat_calls_failed",
		Help:         "stats_chat_calls_failed provides total orchestration calls that reached ERROR",
		RequiredTags: []string{"agent"},
	}

	StatsToolCallsSucceeded = metrics.Describe{
		Type:         metrics.TypeCounter,
		Name:         "stats_tool_calls_succeeded",
		Help:         "stats_tool_calls_succeeded provides total tool calls succeeded",
		RequiredTags: []string{"tool"},
	}

	StatsToolCallsFailed = metrics.Describe{
		Type:         metrics.TypeCounter,
		Name:         "stats_tool_calls_failed",
		Help:         "stats_tool_calls_failed provides total tool calls failed",
		RequiredTags: []string{"tool"},
	}

	StatsToolArgsParseErrors = metrics.Describe{
		Type:         metrics.TypeCounter,
		Name:         "stats_tool_args_parse_errors",
		Help:         "stats_tool_args_parse_errors provides total tool calls with unparsable arguments",
		RequiredTags: []string{"tool"},
	}

	StatsCatalogFetchFailed = metrics.Describe{
		Type:         metrics.TypeCounter,
		Name:         "stats_catalog_fetch_failed",
		Help:         "stats_catalog_fetch_failed provides total failed tool catalog fetches",
		RequiredTags: []string{"transport"},
	}

	StatsCatalogToolsSkipped = metrics.Describe{
		Type:         metrics.TypeCounter,
		Name:         "stats_catalog_tools_skipped",
		Help:         "stats_catalog_tools_skipped provides total tool descriptors dropped by schema translation",
		RequiredTags: []string{"reason"},
	}

	StatsMemorySearchFailed = metrics.Describe{
		Type:         metrics.TypeCounter,
		Name:         "stats_memory_search_failed",
		Help:         "stats_memory_search_failed provides total failed memory searches",
		RequiredTags: []string{"store"},
	}

	StatsMemoryAddFailed = metrics.Describe{
		Type:         metrics.TypeCounter,
		Name:         "stats_memory_add_failed",
		Help:         "stats_memory_add_failed provides total failed memory appends",
		RequiredTags: []string{"store"},
	}
)

// Perf
var (
	PerfChatRun = metrics.Describe{
		Type:         metrics.TypeSample,
		Name:         "perf_chat_run",
		Help:         "perf_chat_run provides duration of one orchestration call",
		RequiredTags: []string{"agent"},
	}

	PerfLLMCall = metrics.Describe{
		Type:         metrics.TypeSample,
		Name:         "perf_llm_call",
		Help:         "perf_llm_call provides duration of completion request",
		RequiredTags: []string{"agent", "model"},
	}

	PerfToolCall = metrics.Describe{
		Type:         metrics.TypeSample,
		Name:         "perf_tool_call",
		Help:         "perf_tool_call provides duration of tool call",
		RequiredTags: []string{"tool"},
	}

	PerfMemorySearch = metrics.Describe{
		Type:         metrics.TypeSample,
		Name:         "perf_memory_search",
		Help:         "perf_memory_search provides duration of memory search",
		RequiredTags: []string{"store"},
	}
)

// Metrics returns slice of metrics from this repo
// keep sorted by name
var Metrics = []*metrics.Describe{
	&PerfChatRun,
	&PerfLLMCall,
	&PerfMemorySearch,
	&PerfToolCall,
	&StatsCatalogFetchFailed,
	&StatsCatalogToolsSkipped,
	&StatsChatCallsFailed,
	&StatsChatCallsSucceeded,
	&StatsLLMCallsFailed,
	&StatsLLMInputTokens,
	&StatsLLMMessagesSent,
	&StatsLLMOutputTokens,
	&StatsLLMTotalTokens,
	&StatsMemoryAddFailed,
	&StatsMemorySearchFailed,
	&StatsToolArgsParseErrors,
	&StatsToolCallsFailed,
	&StatsToolCallsSucceeded,
}
